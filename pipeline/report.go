package pipeline

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ezoic/housing/core/model"
	"github.com/ezoic/housing/dataset"
	"github.com/ezoic/housing/sklearn/model_selection"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	NRows    int
	NTrain   int
	NTest    int
	Features []string

	Proportions  []dataset.ProportionRow
	Correlations []dataset.Correlation

	PreprocessorPath string
	PlotPath         string

	Training   *TrainResult
	Evaluation *Evaluation
}

// WriteText renders the report as aligned plain-text tables.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	p := &printer{w: tw}

	p.printf("Run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	p.printf("Rows: %d\tTrain: %d\tTest: %d\tFeatures: %d\n", r.NRows, r.NTrain, r.NTest, len(r.Features))
	if r.PreprocessorPath != "" {
		p.printf("Preprocessor: %s\n", r.PreprocessorPath)
	}
	if r.PlotPath != "" {
		p.printf("Plot: %s\n", r.PlotPath)
	}

	if len(r.Proportions) > 0 {
		p.printf("\nIncome category proportions\n")
		p.printf("income_cat\tOverall\tStratified\tRandom\tRand. %%error\tStrat. %%error\n")
		for _, row := range r.Proportions {
			p.printf("%d\t%.6f\t%.6f\t%.6f\t%.3f\t%.3f\n",
				row.Category, row.Overall, row.Stratified, row.Random, row.RandomErrorPct, row.StratifiedErrorPct)
		}
	}

	if len(r.Correlations) > 0 {
		p.printf("\nCorrelation with %s\n", dataset.MedianHouseValue)
		for _, c := range r.Correlations {
			p.printf("%s\t%.6f\n", c.Column, c.Value)
		}
	}

	if tr := r.Training; tr != nil {
		p.printf("\nBaselines\n")
		p.printf("model\ttrain RMSE\tCV RMSE mean\tCV RMSE std\n")
		for _, b := range tr.Baselines {
			p.printf("%s\t%.2f\t%.2f\t%.2f\n", b.Name, b.TrainRMSE, b.CVRMSEMean, b.CVRMSEStd)
		}
		p.search("Randomized search", tr.Randomized)
		p.search("Grid search", tr.Grid)

		p.printf("\nBest model (%s)\n", tr.Final.Source)
		p.printf("params\t%s\n", FormatParams(tr.Final.Params))
		p.printf("CV RMSE\t%.2f\n", tr.Final.CVRMSE())

		if len(tr.Importances) > 0 {
			p.printf("\nFeature importances\n")
			for _, fi := range tr.Importances {
				p.printf("%.6f\t%s\n", fi.Importance, fi.Feature)
			}
		}
	}

	if ev := r.Evaluation; ev != nil {
		p.printf("\nTest set (%d samples)\n", ev.NSamples)
		p.printf("RMSE\t%.2f\n", ev.RMSE)
		p.printf("MAE\t%.2f\n", ev.MAE)
		p.printf("R2\t%.4f\n", ev.R2)
		p.printf("RMSE %.0f%% CI\t[%.2f, %.2f]\n", ev.Confidence*100, ev.RMSELower, ev.RMSEUpper)
	}

	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

// printer keeps the first write error so WriteText can check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) search(title string, res *model_selection.SearchResult) {
	if res == nil {
		return
	}
	p.printf("\n%s\n", title)
	p.printf("CV RMSE\tneg-MSE std\trank\tparams\n")
	for _, row := range res.CVResults {
		p.printf("%.2f\t%.2f\t%d\t%s\n",
			math.Sqrt(-row.MeanTestScore), row.StdTestScore, row.RankTestScore, FormatParams(row.Params))
	}
}

// FormatParams renders a combination as key=value pairs in key order, for
// example "max_features=6 n_estimators=30".
func FormatParams(p model.Params) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, " ")
}
