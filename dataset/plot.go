package dataset

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// GeoScatter builds a longitude/latitude scatter plot of frame. alpha in
// (0, 1] sets the point opacity so dense areas stand out. Rows with a
// missing coordinate are skipped.
func GeoScatter(frame *Frame, alpha float64) (*plot.Plot, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, herrors.NewConfigurationError("alpha", "must be in (0, 1]", alpha)
	}
	lon, err := frame.Numeric(Longitude)
	if err != nil {
		return nil, err
	}
	lat, err := frame.Numeric(Latitude)
	if err != nil {
		return nil, err
	}

	pts := make(plotter.XYs, 0, len(lon))
	for i := range lon {
		if math.IsNaN(lon[i]) || math.IsNaN(lat[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: lon[i], Y: lat[i]})
	}
	if len(pts) == 0 {
		return nil, herrors.NewModelError("GeoScatter", "no complete coordinates", herrors.ErrEmptyData)
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, herrors.Wrap(err, "GeoScatter")
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.NRGBA{R: 31, G: 119, B: 180, A: uint8(math.Round(alpha * 255))}

	p := plot.New()
	p.Title.Text = "Housing districts"
	p.X.Label.Text = Longitude
	p.Y.Label.Text = Latitude
	p.Add(plotter.NewGrid(), scatter)
	return p, nil
}

// SaveGeoScatter renders GeoScatter to path. The image format follows the
// file extension (.png, .svg, .pdf).
func SaveGeoScatter(frame *Frame, alpha float64, path string) error {
	p, err := GeoScatter(frame, alpha)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return herrors.NewIOError("save plot", path, err)
	}
	return nil
}
