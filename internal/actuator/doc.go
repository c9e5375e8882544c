// Package actuator models the controllable devices of the dryer (relays,
// fans, heater, camera) and the registry the scheduler triggers them through.
//
// An Actuator has a stable declared ID, a human label and the last value
// that was successfully applied to it. The physical side effect is delegated
// to a Driver; Status only changes after the driver reports success.
//
// The Registry maps IDs to actuators and provides the bulk operations the
// scheduler needs:
//
//   - TriggerBatch applies a phase's actions in order and stops at the first
//     failure.
//   - ResetAll sets every actuator to 0 and reports a Result per actuator.
//     It never fails as a whole, so it is safe on the shutdown path.
//
// Each actuator carries its own lock, held for the duration of a driver
// call, so concurrent jobs never interleave commands to the same device.
package actuator
