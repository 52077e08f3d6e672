// Package dataset loads the specimen table analysed by the report.
//
// A Dataset has one categorical grouping column (for example species) and a
// set of continuous measurement columns. CSV and TSV files are parsed with
// gota; XLSX workbooks are read with excelize and then handed to the same
// record loader, so both paths share type detection and missing-value tokens.
//
//	ds, err := dataset.Load(ctx, "penguins.csv", dataset.Options{
//	    GroupColumn:  "species",
//	    Measurements: []string{"bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g"},
//	})
//	complete, dropped, err := ds.DropMissing()
package dataset
