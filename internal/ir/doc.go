// Package ir provides the value model shared by every progsnap2 package.
//
// This package contains type definitions and pure functions only. All other
// internal packages import ir; ir imports nothing internal.
//
// It defines:
//   - Value: a sealed, tagged variant for MainTable cells
//     (String, Int, Real, Bool, Timestamp, Null)
//   - Event: one MainTable row as a column name → Value map
//   - Section and Entry: a CodeState, the state of every file of a project
//     at one instant
//   - ContentID: the content-addressed identity of an Entry
//
// Key constraints:
//   - Section order inside an Entry is not significant; ContentID sorts
//     sections by name before hashing
//   - A blank Entry has the identifier "" and is never hashed
//   - No two sections of one Entry share a name (the unnamed section counts
//     as one name)
package ir
