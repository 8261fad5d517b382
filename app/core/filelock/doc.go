// Package filelock implements a cooperative lock whose only state on disk is
// the presence of an empty sentinel file.
//
// A process holds the lock by creating the file and releases it by deleting
// it. Any other process following the same convention can interoperate:
//
//   - lock:   create the file, or truncate it if it is already there
//   - unlock: delete the file; "not found" counts as success
//   - locked: the file exists
//
// No OS-level lock primitive is used and creation is not exclusive, so two
// actors that both see the lock free may both believe they acquired it. The
// lock is not fair, not re-entrant, and a sentinel left behind by a crashed
// process stays until someone removes it.
//
// Typical use, where whoever finds the resource locked waits for the holder
// and then reuses its result instead of redoing the work:
//
//	fl, err := filelock.New(path)
//	if err != nil {
//		return err
//	}
//	if fl.Locked() {
//		// held elsewhere: only observe, never release someone else's sentinel
//		defer fl.Detach()
//		return fl.Wait(ctx)
//	}
//	defer fl.Close()
//	return fl.Do(func() error {
//		// exclusive work
//		return nil
//	})
//
// An instance constructed while the sentinel existed starts out Locked and,
// like any locked instance, removes the sentinel on Close or when it is
// garbage collected. Wait only observes and does not change that, hence the
// Detach above. Use a fresh instance to take the lock afterwards.
//
// # Lifetime
//
// The garbage collector may release a locked instance as soon as the program
// no longer uses it, which can be well before the end of the function that
// created it. Without a later use, the sentinel can vanish in the middle of
// the work it was meant to protect:
//
//	fl.Lock()
//	longWork() // fl is unreachable here and may be collected
//
// Keep the instance in use until the work is done, with defer fl.Close(),
// Do, or runtime.KeepAlive(fl) after the last protected step.
package filelock
