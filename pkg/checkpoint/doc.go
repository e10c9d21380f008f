// Package checkpoint records, per project, the index of the last page whose
// raw payload has been durably saved.
//
// Two backends implement Store:
//   - FileStore: a single pretty-printed JSON document
//     {"SPARK": {"last_fetched_page": 4, "last_updated": 1700000000.5}}
//     rewritten atomically (temp file then rename) on every save
//   - RedisStore: one JSON entry per project in a Redis hash
//
// Load never fails. A missing, unreadable or corrupt checkpoint degrades to
// page 0 and is logged as a warning. Entries are only moved forward by the
// scraper; removing them is a manual operation (Reset).
package checkpoint
