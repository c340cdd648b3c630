package training

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/model"
)

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Label     string  `yaml:"label"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Support   int     `yaml:"support"`
}

// Importance is a named feature importance.
type Importance struct {
	Feature    string  `yaml:"feature"`
	Importance float64 `yaml:"importance"`
}

// Report summarizes a training run on its held-out split.
type Report struct {
	ModelID           string         `yaml:"model_id"`
	CreatedAt         time.Time      `yaml:"created_at"`
	TrainSize         int            `yaml:"train_size"`
	TestSize          int            `yaml:"test_size"`
	Accuracy          float64        `yaml:"accuracy"`
	Classes           []ClassMetrics `yaml:"classes"`
	MacroAvg          ClassMetrics   `yaml:"macro_avg"`
	WeightedAvg       ClassMetrics   `yaml:"weighted_avg"`
	Confusion         [2][2]int      `yaml:"confusion_matrix"` // rows actual, columns predicted; Fail then Pass
	Importances       []Importance   `yaml:"feature_importances"`
	Standardized      bool           `yaml:"standardized"`
	ScaledBeforeSplit bool           `yaml:"scaled_before_split"`
}

// evaluate scores p against labelled rows and fills the metric fields of r.
func (r *Report) evaluate(p *classifier.Pipeline, x [][]float64, y []int) error {
	r.Confusion = [2][2]int{}
	correct := 0
	for i, row := range x {
		predicted, _, err := p.Predict(row)
		if err != nil {
			return err
		}
		r.Confusion[y[i]][predicted]++
		if predicted == y[i] {
			correct++
		}
	}
	if len(x) > 0 {
		r.Accuracy = float64(correct) / float64(len(x))
	}

	r.Classes = r.Classes[:0]
	total := 0
	var macro, weighted ClassMetrics
	for _, class := range []int{model.ClassFail, model.ClassPass} {
		cm := r.classMetrics(class)
		r.Classes = append(r.Classes, cm)
		total += cm.Support

		macro.Precision += cm.Precision / 2
		macro.Recall += cm.Recall / 2
		macro.F1 += cm.F1 / 2
		weighted.Precision += cm.Precision * float64(cm.Support)
		weighted.Recall += cm.Recall * float64(cm.Support)
		weighted.F1 += cm.F1 * float64(cm.Support)
	}
	macro.Label, macro.Support = "macro avg", total
	weighted.Label, weighted.Support = "weighted avg", total
	if total > 0 {
		weighted.Precision /= float64(total)
		weighted.Recall /= float64(total)
		weighted.F1 /= float64(total)
	}
	r.MacroAvg, r.WeightedAvg = macro, weighted
	return nil
}

func (r *Report) classMetrics(class int) ClassMetrics {
	other := 1 - class
	tp := r.Confusion[class][class]
	fn := r.Confusion[class][other]
	fp := r.Confusion[other][class]

	cm := ClassMetrics{
		Label:     string(model.ResultFromClass(class)),
		Precision: ratio(tp, tp+fp),
		Recall:    ratio(tp, tp+fn),
		Support:   tp + fn,
	}
	if cm.Precision+cm.Recall > 0 {
		cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
	}
	return cm
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func namedImportances(names []string, values []float64) []Importance {
	out := make([]Importance, 0, len(values))
	for i, v := range values {
		if i < len(names) {
			out = append(out, Importance{Feature: names[i], Importance: v})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// ImportanceMap returns importances keyed by feature name.
func (r *Report) ImportanceMap() map[string]float64 {
	m := make(map[string]float64, len(r.Importances))
	for _, imp := range r.Importances {
		m[imp.Feature] = imp.Importance
	}
	return m
}

// String renders the report as plain text.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s trained on %d records, evaluated on %d\n", r.ModelID, r.TrainSize, r.TestSize)
	fmt.Fprintf(&b, "accuracy: %.4f\n\n", r.Accuracy)
	fmt.Fprintf(&b, "%14s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	rows := append(append([]ClassMetrics{}, r.Classes...), r.MacroAvg, r.WeightedAvg)
	for _, cm := range rows {
		fmt.Fprintf(&b, "%14s %9.2f %9.2f %9.2f %9d\n", cm.Label, cm.Precision, cm.Recall, cm.F1, cm.Support)
	}
	fmt.Fprintf(&b, "\nconfusion matrix (rows actual Fail/Pass, columns predicted):\n")
	fmt.Fprintf(&b, "  %5d %5d\n  %5d %5d\n", r.Confusion[0][0], r.Confusion[0][1], r.Confusion[1][0], r.Confusion[1][1])
	fmt.Fprintf(&b, "\nfeature importances:\n")
	for _, imp := range r.Importances {
		fmt.Fprintf(&b, "  %-16s %.4f\n", imp.Feature, imp.Importance)
	}
	return b.String()
}

// WriteYAML encodes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// SaveYAML writes the report to path.
func (r *Report) SaveYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := r.WriteYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
