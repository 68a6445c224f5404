// Package playlist holds the client-side state of the playlist manager.
//
// # Components
//
//  1. [Catalog] : Sorted local mirror of the backend's music files, replaced wholesale on every refresh
//  2. [BuildViewModel] : Pure projection of a [models.ConfigSnapshot] into displayable [models.PlaylistEntry] values
//  3. [Editor] : Dual-list allocator partitioning the catalog into available files and assigned tracks
//     for one playlist being created or edited, with commit/cancel semantics
//  4. [Reconciler] : Applies every non-empty configuration snapshot to a shared [ConfigCell]
//
// # Ownership
//
// None of these types lock. They belong to one goroutine (the bubbletea update loop, or a CLI action).
// Remote calls are split from state changes so they can run elsewhere:
// [Catalog.Fetch] / [Catalog.Replace], and [Editor.PrepareCommit] / [CommitRequest.Send] / [Editor.Finish].
// Snapshots published from other goroutines go through a [Mailbox], which keeps only the latest one.
//
// # Errors
//
// Local precondition failures wrap [shared.ErrValidation]; rejected commands wrap [shared.ErrRemoteCommand];
// failed catalog or configuration fetches wrap [shared.ErrRemoteFetch]. Nothing is retried.
package playlist
