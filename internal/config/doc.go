// Package config provides configuration management for the PCA report.
// It handles loading configuration from multiple sources, validation, and the
// layout of the output directory.
//
// # Configuration Sources
//
// Configuration is resolved in the following order, later sources winning:
//
//  1. Default values
//  2. A YAML file (explicit path, or pca-report.yaml / configs/pca-report.yaml)
//  3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern PCA_<SECTION>_<FIELD>:
//
//	PCA_ANALYSIS_INPUT_FILE=data/penguins.csv
//	PCA_ANALYSIS_GROUP_COLUMN=species
//	PCA_ANALYSIS_MISSING=median
//	PCA_RENDER_FORMAT=svg
//	PCA_RENDER_BIPLOTS=1:2,2:3
//	PCA_LOGGING_LEVEL=debug
//
// # Path Management
//
// Paths describes the output bundle:
//
//	output/
//	  ├── report.md
//	  ├── manifest.json
//	  ├── figures/   (pairs, heatmap, loadings, biplots, scree)
//	  ├── tables/    (CSV tables, tables.xlsx, summary.json)
//	  └── logs/      (trace.json, metrics.prom)
package config
