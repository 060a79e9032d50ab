// Package driving defines the interfaces through which external actors
// drive the application core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// The HTTP adapter and the CLI depend on these interfaces; core services
// implement them.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driving
