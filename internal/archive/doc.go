// package archive implements the deduplicating append/rotation controller.
//
// An [Archiver] performs one run-to-completion pass: it loads the persisted
// seen-key set and volume pointer, makes sure a writable archive playlist
// exists, pulls the station feed, resolves unseen tracks to Spotify URIs and
// appends them in broadcast order, rotating to a fresh volume whenever the
// active playlist reaches its capacity threshold. State is checkpointed
// after every successful flush, so a killed run resumes without losing or
// duplicating tracks.
package archive
