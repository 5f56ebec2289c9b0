package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// TotalPaths is the set of canonical output paths for one total-field
// product, mirroring the fields referenced throughout the source system as
// c.total.mdir / mpathfile / asciidir / asciipathfile / ncpathfile /
// msumdir / msumpathfile.
type TotalPaths struct {
	MDir, MPathFile         string // MAT-equivalent binary (merge authority)
	ASCIIDir, ASCIIPathFile string
	NCDir, NCPathFile       string

	// MSumDir/MSumPathFile are populated only for LTA monthly-sum
	// products, which persist separately from the monthly average.
	MSumDir, MSumPathFile string
}

// FilenameConvention derives canonical total-file paths rooted at a base
// directory, grounded on original_source/.../rtv.py's
// "total.getFilenames(c, t, 'rtv')" naming scheme.
type FilenameConvention struct {
	BaseDir string
}

const timeFormat = "20060102T150405Z"

func (fc FilenameConvention) root(domain, resolution, process string) string {
	return filepath.Join(fc.BaseDir, Normalize(domain), Normalize(resolution), process)
}

// RTV returns the canonical paths for the hourly RTV total at time t.
func (fc FilenameConvention) RTV(domain, resolution string, t time.Time) TotalPaths {
	root := fc.root(domain, resolution, "rtv")
	stamp := fmt.Sprintf("%s_%s_rtv_%s", Normalize(domain), Normalize(resolution), t.UTC().Format(timeFormat))
	return TotalPaths{
		MDir:         filepath.Join(root, "mat"),
		MPathFile:    filepath.Join(root, "mat", stamp+".mat.gob"),
		ASCIIDir:     filepath.Join(root, "ascii"),
		ASCIIPathFile: filepath.Join(root, "ascii", stamp+".txt"),
		NCDir:        filepath.Join(root, "nc"),
		NCPathFile:   filepath.Join(root, "nc", stamp+".nc"),
	}
}

// STC returns the canonical paths for the 25-hour average centered at tc.
func (fc FilenameConvention) STC(domain, resolution string, tc time.Time) TotalPaths {
	root := fc.root(domain, resolution, "stc")
	stamp := fmt.Sprintf("%s_%s_stc_%s", Normalize(domain), Normalize(resolution), tc.UTC().Format(timeFormat))
	return TotalPaths{
		MDir:         filepath.Join(root, "mat"),
		MPathFile:    filepath.Join(root, "mat", stamp+".mat.gob"),
		ASCIIDir:     filepath.Join(root, "ascii"),
		ASCIIPathFile: filepath.Join(root, "ascii", stamp+".txt"),
		NCDir:        filepath.Join(root, "nc"),
		NCPathFile:   filepath.Join(root, "nc", stamp+".nc"),
	}
}

// LTAMonthlySum returns the canonical paths for the monthly one-pass sum
// structure (persisted separately under MSumDir/MSumPathFile, per
// original_source/.../saveMat.py's isLtaMonthSumData branch).
func (fc FilenameConvention) LTAMonthlySum(domain, resolution string, month time.Time) TotalPaths {
	root := fc.root(domain, resolution, "lta")
	stamp := fmt.Sprintf("%s_%s_lta_month_%s", Normalize(domain), Normalize(resolution), month.UTC().Format("200601"))
	return TotalPaths{
		MSumDir:      filepath.Join(root, "monthly", "sum"),
		MSumPathFile: filepath.Join(root, "monthly", "sum", stamp+"_sum.mat.gob"),
	}
}

// LTAMonthlyAvg returns the canonical paths for the monthly average
// product.
func (fc FilenameConvention) LTAMonthlyAvg(domain, resolution string, month time.Time) TotalPaths {
	root := fc.root(domain, resolution, "lta")
	stamp := fmt.Sprintf("%s_%s_lta_month_%s", Normalize(domain), Normalize(resolution), month.UTC().Format("200601"))
	return TotalPaths{
		MDir:         filepath.Join(root, "monthly", "avg"),
		MPathFile:    filepath.Join(root, "monthly", "avg", stamp+".mat.gob"),
		ASCIIDir:     filepath.Join(root, "monthly", "ascii"),
		ASCIIPathFile: filepath.Join(root, "monthly", "ascii", stamp+".txt"),
		NCDir:        filepath.Join(root, "monthly", "nc"),
		NCPathFile:   filepath.Join(root, "monthly", "nc", stamp+".nc"),
	}
}

// LTAAnnual returns the canonical paths for the annual average product.
func (fc FilenameConvention) LTAAnnual(domain, resolution string, year int) TotalPaths {
	root := fc.root(domain, resolution, "lta")
	stamp := fmt.Sprintf("%s_%s_lta_annual_%04d", Normalize(domain), Normalize(resolution), year)
	return TotalPaths{
		MDir:         filepath.Join(root, "annual", "avg"),
		MPathFile:    filepath.Join(root, "annual", "avg", stamp+".mat.gob"),
		ASCIIDir:     filepath.Join(root, "annual", "ascii"),
		ASCIIPathFile: filepath.Join(root, "annual", "ascii", stamp+".txt"),
		NCDir:        filepath.Join(root, "annual", "nc"),
		NCPathFile:   filepath.Join(root, "annual", "nc", stamp+".nc"),
	}
}
