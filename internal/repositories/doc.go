// package repositories provides the persistence layer for run state.
//
// State is a small set of named single-document records (the seen-key set
// and the volume pointer), each loaded and saved wholesale through the
// generic [Store] contract. Two backends exist: one JSON file per record,
// and rows in a SQLite table sharing the same JSON payloads.
package repositories
