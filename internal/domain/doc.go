// Package domain models the storm-surge simulation data that the dataset
// builder consumes and the vocabulary shared across the build.
//
// # Data Source
//
// Each work unit is one storm simulation directory produced by an ADCIRC
// run, imported by the setup command:
//
//	best_track.csv   best-track parameters, one row per forecast hour
//	fort.73.nc       atmospheric pressure at every mesh node over time
//	fort.74.nc       wind velocity (windx, windy) at every mesh node over time
//	maxele.63.nc     peak water surface elevation (zeta_max) per mesh node
//
// The .nc files are NetCDF-4, which is an HDF5 container format, so they
// are read with the same pure-Go HDF5 reader used for everything else.
//
// Shared across all storms, in the data directory:
//
//	coastal_dist.hdf5   per-mesh-node distance to the coastline (dataset "dist")
//	bathy_stats.hdf5    precomputed bathymetry statistics, one dataset per stat
//	land_mask.hdf5      coarse land/sea grid used for landfall detection
//
// A storm directory may carry its own coastal_dist.hdf5 or bathy_stats.hdf5,
// which shadow the shared copies for that storm only.
//
// # Provenance
//
// Every row of the final dataset descends from one (storm, mesh node)
// selection. The synthetic "storm" column carries the storm's global index
// in lockstep with every other column; because all keys gather through the
// identical per-rank, per-unit ordering, storm[i] labels row i of every
// same-length key. The "inds" column records the selected mesh node
// indices, so rows can be mapped back onto the mesh.
package domain
