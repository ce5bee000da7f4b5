// Package sanitizer provides input normalization for room and booking data.
//
// All normalization functions are idempotent: applying them multiple times produces
// the same result. Invalid input is handled by returning an empty string rather
// than an error; validation happens afterwards.
//
// Normalization includes:
//   - Room names: collapse whitespace, drop control and format characters, keep case
//   - Descriptions: same as room names
//   - References: trim surrounding whitespace and format characters, case sensitive
package sanitizer
