// Package storage persists pipeline artifacts on the local filesystem.
//
// PageStore holds the raw search envelopes, one file per project page:
//
//	data/raw/SPARK_page_0.json
//	data/raw/SPARK_page_1.json
//
// Every write goes through WriteFileAtomic (temporary file, sync, rename), so
// a crash mid-write never leaves a truncated artifact behind. ListPages
// returns page indexes in numeric order, which is the order the transform
// stage reads them in.
//
// Usage:
//
//	pages, err := storage.NewPageStore(cfg.Storage.RawDir)
//	if err != nil {
//	    return err
//	}
//	if err := pages.SavePage("SPARK", 0, envelope); err != nil {
//	    return err
//	}
package storage
