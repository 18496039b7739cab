// imuplot renders the samples of an imulog database as a PNG of acceleration or angular rate
// against time.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/b3nn0/imulog/datalog"
)

var errNoSamples = errors.New("imuplot: no samples in range")

// series holds one line per axis, with time relative to the first sample.
type series struct {
	x, y, z plotter.XYs
}

func load(path string, from, to float64, gyro bool) (*series, error) {
	dl, err := datalog.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer dl.Close()

	s := &series{}
	t0 := math.NaN()
	err = dl.Each(from, to, func(row datalog.Sample) error {
		if math.IsNaN(t0) {
			t0 = row.TS
		}
		t := row.TS - t0
		v := [3]float64{row.AX, row.AY, row.AZ}
		if gyro {
			v = [3]float64{row.GX, row.GY, row.GZ}
		}
		s.x = append(s.x, plotter.XY{X: t, Y: v[0]})
		s.y = append(s.y, plotter.XY{X: t, Y: v[1]})
		s.z = append(s.z, plotter.XY{X: t, Y: v[2]})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(s.x) == 0 {
		return nil, errNoSamples
	}
	return s, nil
}

func render(s *series, gyro bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Acceleration"
	p.Y.Label.Text = "g"
	if gyro {
		p.Title.Text = "Angular rate"
		p.Y.Label.Text = "deg/s"
	}
	p.X.Label.Text = "t (s)"
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLines(p, "x", s.x, "y", s.y, "z", s.z); err != nil {
		return nil, err
	}
	return p, nil
}

func main() {
	out := flag.String("out", "imu.png", "PNG file to write")
	from := flag.Float64("from", -math.MaxFloat64, "First timestamp to plot, monotonic seconds")
	to := flag.Float64("to", math.MaxFloat64, "Last timestamp to plot, monotonic seconds")
	gyro := flag.Bool("gyro", false, "Plot angular rate instead of acceleration")
	width := flag.Float64("width", 10, "Image width in inches")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: imuplot [flags] <db>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	s, err := load(flag.Arg(0), *from, *to, *gyro)
	if err != nil {
		log.Fatalf("imuplot: %s\n", err)
	}
	p, err := render(s, *gyro)
	if err != nil {
		log.Fatalf("imuplot: %s\n", err)
	}
	w := vg.Length(*width) * vg.Inch
	if err := p.Save(w, w/2, *out); err != nil {
		log.Fatalf("imuplot: %s\n", err)
	}
	log.Printf("imuplot: %d samples written to %s\n", len(s.x), *out)
}
