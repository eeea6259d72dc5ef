// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, persisted storage, the API client with its cookie
// jar and 401 guard, the auth services and an interactive REPL. Start-up
// resolves the persisted session before the first prompt is shown.
//
// Commands:
//   - register / verify / resend: create and confirm an account
//   - login / google / facebook / callback <url>: authenticate
//   - profile / passwd: edit the logged-in account
//   - 2fa / 2fa-setup / 2fa-enable / 2fa-disable: two-factor management
//   - forgot / reset [code]: password recovery
//   - status / logout / exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
