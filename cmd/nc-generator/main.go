package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/fhs/go-netcdf/netcdf"
)

const fillValue float32 = -9999

// RegionalGrid defines the geographic bounds and resolution
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// Layout controls how the axes are stored in the file
type Layout struct {
	Times         int
	DescendingLat bool
	Lon360        bool
	LongNames     bool // latitude/longitude instead of lat/lon
}

func main() {
	// Command line flags
	outPath := flag.String("out", "./data/ocean.nc", "Output NetCDF file")
	region := flag.String("region", "med", "Region: med, pacific, global, or custom")
	latMin := flag.Float64("lat-min", 30.0, "Minimum latitude (custom region)")
	latMax := flag.Float64("lat-max", 46.0, "Maximum latitude (custom region)")
	lonMin := flag.Float64("lon-min", -6.0, "Minimum longitude (custom region)")
	lonMax := flag.Float64("lon-max", 36.0, "Maximum longitude (custom region)")
	resolution := flag.Float64("resolution", 0.25, "Grid resolution in degrees")
	times := flag.Int("times", 2, "Number of time steps")
	descending := flag.Bool("descending-lat", false, "Store latitude north to south")
	lon360 := flag.Bool("lon360", false, "Store longitude in 0..360")
	longNames := flag.Bool("long-names", false, "Name axes latitude/longitude")
	landSeed := flag.Float64("land", 0.15, "Fraction of cells masked as land (0..1)")

	flag.Parse()

	// Define grid based on region
	var grid RegionalGrid
	switch *region {
	case "med":
		grid = RegionalGrid{LatMin: 30.0, LatMax: 46.0, LonMin: -6.0, LonMax: 36.0, Resolution: *resolution}
	case "pacific":
		// Straddles the antimeridian; best stored with -lon360.
		grid = RegionalGrid{LatMin: -20.0, LatMax: 10.0, LonMin: 160.0, LonMax: 200.0, Resolution: *resolution}
	case "global":
		grid = RegionalGrid{LatMin: -80.0, LatMax: 90.0, LonMin: -180.0, LonMax: 179.5, Resolution: 0.5}
	case "custom":
		grid = RegionalGrid{LatMin: *latMin, LatMax: *latMax, LonMin: *lonMin, LonMax: *lonMax, Resolution: *resolution}
	default:
		log.Fatalf("Unknown region: %s (use med, pacific, global, or custom)", *region)
	}
	if *times < 1 {
		log.Fatalf("times must be at least 1")
	}

	layout := Layout{Times: *times, DescendingLat: *descending, Lon360: *lon360, LongNames: *longNames}

	log.Printf("Generating ocean NetCDF for region: %s", *region)
	log.Printf("Grid: %.2f°-%.2f°N, %.2f°-%.2f°E, resolution: %.3f°",
		grid.LatMin, grid.LatMax, grid.LonMin, grid.LonMax, grid.Resolution)

	if err := os.MkdirAll(filepath.Dir(*outPath), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	lat, lon := axes(grid, layout)
	if err := writeOcean(*outPath, lat, lon, layout, *landSeed); err != nil {
		log.Fatalf("Failed to write %s: %v", *outPath, err)
	}

	log.Printf("✓ Generated %s", *outPath)
	log.Printf("Grid size: %d × %d points, %d time steps", len(lat), len(lon), layout.Times)
	log.Printf("Variables: thetao(time, lat, lon), so(time, lat, lon), zos(lat, lon)")
}

// axes builds the coordinate arrays in the requested storage order.
func axes(grid RegionalGrid, layout Layout) ([]float64, []float64) {
	nLat := int(math.Round((grid.LatMax-grid.LatMin)/grid.Resolution)) + 1
	nLon := int(math.Round((grid.LonMax-grid.LonMin)/grid.Resolution)) + 1

	lat := make([]float64, nLat)
	for i := 0; i < nLat; i++ {
		if layout.DescendingLat {
			lat[i] = grid.LatMax - float64(i)*grid.Resolution
		} else {
			lat[i] = grid.LatMin + float64(i)*grid.Resolution
		}
	}

	lon := make([]float64, nLon)
	for i := 0; i < nLon; i++ {
		v := grid.LonMin + float64(i)*grid.Resolution
		if layout.Lon360 && v < 0 {
			v += 360
		}
		if !layout.Lon360 && v > 180 {
			v -= 360
		}
		lon[i] = v
	}
	return lat, lon
}

// temperature is a smooth sea surface temperature field (°C).
func temperature(lat, lon float64, step int) float64 {
	return 28.0 - 0.35*math.Abs(lat) +
		1.5*math.Sin(lon*math.Pi/30.0) +
		0.5*math.Cos(lat*math.Pi/10.0) +
		0.2*float64(step)
}

// salinity is a smooth practical salinity field (PSU).
func salinity(lat, lon float64, step int) float64 {
	return 35.0 + 1.2*math.Sin(lat*math.Pi/25.0)*math.Cos(lon*math.Pi/40.0) - 0.05*float64(step)
}

// seaLevel is a smooth sea surface height field (m).
func seaLevel(lat, lon float64) float64 {
	return 0.3 * math.Sin(lat*math.Pi/20.0) * math.Sin(lon*math.Pi/15.0)
}

// isLand masks blobs of roughly the requested fraction of cells.
func isLand(lat, lon, fraction float64) bool {
	if fraction <= 0 {
		return false
	}
	v := 0.5 + 0.5*math.Sin(lat*0.7)*math.Cos(lon*0.5)
	return v < fraction
}

// writeOcean writes the coordinate and data variables of one file
func writeOcean(path string, lat, lon []float64, layout Layout, land float64) error {
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	latName, lonName := "lat", "lon"
	if layout.LongNames {
		latName, lonName = "latitude", "longitude"
	}

	// Create dimensions
	timeDim, err := ds.AddDim("time", uint64(layout.Times))
	if err != nil {
		return err
	}
	latDim, err := ds.AddDim(latName, uint64(len(lat)))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim(lonName, uint64(len(lon)))
	if err != nil {
		return err
	}

	// Create coordinate variables
	timeVar, err := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	latVar, err := ds.AddVar(latName, netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	lonVar, err := ds.AddVar(lonName, netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}

	// Create data variables
	cube := []netcdf.Dim{timeDim, latDim, lonDim}
	thetao, err := ds.AddVar("thetao", netcdf.FLOAT, cube)
	if err != nil {
		return err
	}
	so, err := ds.AddVar("so", netcdf.FLOAT, cube)
	if err != nil {
		return err
	}
	zos, err := ds.AddVar("zos", netcdf.FLOAT, []netcdf.Dim{latDim, lonDim})
	if err != nil {
		return err
	}
	for _, v := range []netcdf.Var{thetao, so, zos} {
		if err := v.Attr("_FillValue").WriteFloat32s([]float32{fillValue}); err != nil {
			return err
		}
	}
	if err := ds.EndDef(); err != nil {
		return err
	}

	steps := make([]float64, layout.Times)
	for t := range steps {
		steps[t] = float64(t) * 24
	}
	if err := timeVar.WriteFloat64s(steps); err != nil {
		return err
	}
	if err := latVar.WriteFloat64s(lat); err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(lon); err != nil {
		return err
	}

	plane := len(lat) * len(lon)
	temp := make([]float32, layout.Times*plane)
	salt := make([]float32, layout.Times*plane)
	ssh := make([]float32, plane)
	for t := 0; t < layout.Times; t++ {
		for i, la := range lat {
			for j, lo := range lon {
				idx := i*len(lon) + j
				if isLand(la, lo, land) {
					temp[t*plane+idx] = fillValue
					salt[t*plane+idx] = fillValue
					ssh[idx] = fillValue
					continue
				}
				temp[t*plane+idx] = float32(temperature(la, lo, t))
				salt[t*plane+idx] = float32(salinity(la, lo, t))
				ssh[idx] = float32(seaLevel(la, lo))
			}
		}
	}
	if err := thetao.WriteFloat32s(temp); err != nil {
		return err
	}
	if err := so.WriteFloat32s(salt); err != nil {
		return err
	}
	return zos.WriteFloat32s(ssh)
}
