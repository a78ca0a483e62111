// Package sandbox guards filesystem access for task handlers.
//
// # Overview
//
// Every task that reads or writes a file first passes each path argument
// through a Guard. The Guard owns a single restricted root directory and
// rejects any path that does not fall under it with ErrPermissionDenied.
//
// # Modes
//
// ModeStrict (the default) cleans the candidate path lexically and requires
// it to equal the root or sit below it on a separator boundary:
//
//	/data/in.csv       accepted
//	/data-evil/in.csv  rejected
//	/data/../etc/passwd rejected
//
// ModeLexical is a plain string-prefix comparison with no normalization.
// It accepts sibling directories that share the root's prefix, such as
// /datazzz/evil. It exists for callers that need the historical behavior.
//
// Neither mode resolves symlinks.
//
// # Deny patterns
//
// A Guard may carry doublestar patterns (for example "**/.git/**") matched
// against the slash-separated path relative to the root. A match is
// rejected even when the path is inside the root.
//
// # Usage
//
//	guard, err := sandbox.New("/data", sandbox.WithMode(sandbox.ModeStrict))
//	if err != nil {
//	    return err
//	}
//	if err := guard.Check(inPath, outPath); err != nil {
//	    return err // errors.Is(err, sandbox.ErrPermissionDenied)
//	}
package sandbox
