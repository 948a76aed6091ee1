// Package operation implements the execution envelope shared by every CRM operation.
//
// An operation receives a raw JSON request, runs an operation-specific handler and
// always answers with a raw JSON envelope of the form
//
//	{"success":true,"errorMessage":null, ...payload}
//	{"success":false,"errorMessage":"<description>\n<trace>\n...", ...zero payload}
//
// Failures of any kind (malformed JSON, validation, handler errors, panics) are
// folded into the envelope; nothing is returned to the caller as an error.
package operation
