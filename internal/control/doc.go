// Package control provides joint-space feedback controllers for multibody
// systems.
//
// Controllers implement [sim.Controller] and return one generalized force
// per joint DOF:
//
//   - [PD]: proportional-derivative tracking of joint targets
//   - [ComputedTorque]: PD feedback shaped through an inverse dynamics model
//   - [LQR]: linear state feedback on the generalized state
//   - [Manual]: a control vector set from outside, used by the live view
//   - [None]: zero control
//
// # Usage
//
//	tree, _ := invdyn.CreateFromMultiBody(mb)
//	ct := control.NewComputedTorque(tree, control.Gains{Kp: 100, Kd: 20}, control.NewTarget(mb.NumDofs()))
//	s := sim.New(w, mb, ct)
//
// Controllers implementing [sim.Configurable] support live tuning.
package control
