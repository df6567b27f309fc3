// Package check contains the validation stages of the verifykit pipeline:
// the format screen, the MX resolution and the SMTP probe. These types can
// be used directly, but the recommended entry point is the Verifier in the
// github.com/optimode/verifykit package, which composes them and adds
// MX fallback, batching and rate limiting.
package check
