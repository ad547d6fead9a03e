// Package preflight provides readiness checks for the filesystem paths and
// binaries vidbatch depends on.
//
// These checks run in two contexts:
//   - The daemon checks the output directory before accepting a batch so a
//     run never starts against a directory it cannot write.
//   - The CLI "vidbatch status" command renders RunAll and CheckSystemDeps
//     to display overall health.
package preflight
