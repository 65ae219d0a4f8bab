// Package spatial provides 6-D spatial algebra for rigid-body dynamics.
//
// Quantities follow Featherstone's conventions with the angular part first:
//
//   - [MotionVector]: (angular, linear) velocities and accelerations
//   - [ForceVector]: (moment, force) wrenches and momenta
//   - [Transform]: Plücker transform from a parent frame to a child frame
//   - [Mat6]: 6×6 block matrix used for rigid-body and articulated inertias
//   - [Pose]: world position and orientation of a body frame
//
// All 3-D arithmetic is done with mgl64 vectors, matrices and quaternions.
package spatial
