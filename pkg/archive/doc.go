// Package archive builds the downloadable ZIP bundle for a creator.
//
// A Writer streams each project into the archive as soon as it is scraped:
//
//	<slug>/metadata.json
//	<slug>/images/cover.<ext>
//	<slug>/images/screenshot_<i>.<ext>
//
// Finalize adds index.json with one summary per archived project plus the
// list of skipped items, then renames the temporary file into place. Abort
// removes the temporary file instead.
//
// Usage:
//
//	w, err := archive.NewWriter(cfg.Output.Directory, cfg.ArchiveName(creator))
//	if err != nil {
//	    return err
//	}
//	if _, err := w.AddProject(project); err != nil {
//	    w.Abort()
//	    return err
//	}
//	path, err := w.Finalize(creator, skipped)
package archive
