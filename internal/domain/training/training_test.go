package training

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v2"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/dataset"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/schema"
)

func generate(n int, seed int64) []model.Record {
	records, err := dataset.NewGenerator(rand.New(rand.NewSource(seed))).Generate(n)
	So(err, ShouldBeNil)
	return records
}

func fastTrainer(opts ...Option) *Trainer {
	base := []Option{
		WithForestOptions(classifier.WithTrees(25)),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	}
	return New(append(base, opts...)...)
}

func TestStratifiedSplit(t *testing.T) {
	Convey("Given an imbalanced label set", t, func() {
		y := make([]int, 100)
		for i := 0; i < 12; i++ {
			y[i*8] = 1
		}
		train, test := StratifiedSplit(y, 0.25, rand.New(rand.NewSource(42)))

		Convey("Then every row lands on exactly one side", func() {
			So(len(train)+len(test), ShouldEqual, 100)
			seen := map[int]bool{}
			for _, i := range append(append([]int{}, train...), test...) {
				So(seen[i], ShouldBeFalse)
				seen[i] = true
			}
		})

		Convey("Then class shares are preserved", func() {
			pos := 0
			for _, i := range test {
				pos += y[i]
			}
			So(pos, ShouldEqual, 3)
			So(len(test), ShouldEqual, 25)
		})
	})

	Convey("Given two members of a class and a tiny test fraction", t, func() {
		y := []int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}
		train, test := StratifiedSplit(y, 0.01, rand.New(rand.NewSource(1)))

		Convey("Then each class still appears on both sides", func() {
			var trainPos, testPos int
			for _, i := range train {
				trainPos += y[i]
			}
			for _, i := range test {
				testPos += y[i]
			}
			So(trainPos, ShouldEqual, 1)
			So(testPos, ShouldEqual, 1)
			So(len(test), ShouldEqual, 2)
		})
	})
}

func TestTrain(t *testing.T) {
	Convey("Given 1000 generated records", t, func() {
		records := generate(1000, 7)
		ctx := context.Background()

		Convey("When a model is trained", func() {
			m, report, err := fastTrainer().Train(ctx, records)
			So(err, ShouldBeNil)

			Convey("Then accuracy is a valid ratio above chance", func() {
				So(report.Accuracy, ShouldBeBetweenOrEqual, 0.0, 1.0)
				So(report.Accuracy, ShouldBeGreaterThan, 0.55)
			})

			Convey("Then the split follows the test fraction", func() {
				So(report.TrainSize+report.TestSize, ShouldEqual, 1000)
				So(report.TestSize, ShouldBeBetweenOrEqual, 245, 255)
			})

			Convey("Then the confusion matrix covers the test set", func() {
				c := report.Confusion
				So(c[0][0]+c[0][1]+c[1][0]+c[1][1], ShouldEqual, report.TestSize)
				So(report.Classes, ShouldHaveLength, 2)
				So(report.Classes[0].Label, ShouldEqual, "Fail")
				So(report.Classes[1].Label, ShouldEqual, "Pass")
				So(report.Classes[0].Support+report.Classes[1].Support, ShouldEqual, report.TestSize)
			})

			Convey("Then every feature has a named importance", func() {
				So(report.Importances, ShouldHaveLength, schema.Len())
				var sum float64
				for _, imp := range report.Importances {
					sum += imp.Importance
				}
				So(sum, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("Then the artifact carries schema and identity", func() {
				So(m.ID, ShouldEqual, report.ModelID)
				So(m.ID, ShouldNotBeBlank)
				So(m.Features, ShouldResemble, schema.Names())
				So(m.Fingerprint, ShouldEqual, schema.Fingerprint())
				So(m.Pipeline.Scaler, ShouldNotBeNil)
				So(m.Evaluation.Accuracy, ShouldEqual, report.Accuracy)
				So(m.CreatedAt, ShouldEqual, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			})

			Convey("Then it is ready to predict", func() {
				So(m.Ready(), ShouldBeTrue)
				_, p, err := m.Pipeline.Predict([]float64{90, 7.5, 95, 92})
				So(err, ShouldBeNil)
				So(p, ShouldBeBetweenOrEqual, 0.0, 1.0)
			})

			Convey("Then the report renders as text and YAML", func() {
				So(report.String(), ShouldContainSubstring, "accuracy:")
				So(report.String(), ShouldContainSubstring, "weighted avg")

				var buf bytes.Buffer
				So(report.WriteYAML(&buf), ShouldBeNil)
				var decoded map[string]interface{}
				So(yaml.Unmarshal(buf.Bytes(), &decoded), ShouldBeNil)
				So(decoded["model_id"], ShouldEqual, report.ModelID)
				So(decoded["test_size"], ShouldEqual, report.TestSize)

				path := filepath.Join(t.TempDir(), "reports", "report.yaml")
				So(report.SaveYAML(path), ShouldBeNil)
			})
		})

		Convey("When the same data is trained twice", func() {
			_, r1, err := fastTrainer().Train(ctx, records)
			So(err, ShouldBeNil)
			_, r2, err := fastTrainer().Train(ctx, records)
			So(err, ShouldBeNil)

			Convey("Then the evaluation is identical", func() {
				So(r2.Accuracy, ShouldEqual, r1.Accuracy)
				So(r2.Confusion, ShouldResemble, r1.Confusion)
				So(r2.ModelID, ShouldNotEqual, r1.ModelID)
			})
		})

		Convey("When standardization is disabled", func() {
			m, report, err := fastTrainer(WithStandardize(false)).Train(ctx, records)
			So(err, ShouldBeNil)
			So(m.Pipeline.Scaler, ShouldBeNil)
			So(report.Standardized, ShouldBeFalse)
		})

		Convey("When the scaler is fit before the split", func() {
			_, report, err := fastTrainer(WithScaleBeforeSplit(true)).Train(ctx, records)
			So(err, ShouldBeNil)
			So(report.ScaledBeforeSplit, ShouldBeTrue)
		})
	})
}

func TestTrainInsufficientData(t *testing.T) {
	Convey("Given unusable record sets", t, func() {
		ctx := context.Background()
		rec := func(r model.Result) model.Record {
			return model.Record{ID: "STU0001", Attendance: 80, StudyHours: 4, PreviousMarks: 70, AssignmentScore: 70, Result: r}
		}

		Convey("An empty set fails", func() {
			_, _, err := fastTrainer().Train(ctx, nil)
			So(errors.Is(err, errs.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("A single class fails", func() {
			_, _, err := fastTrainer().Train(ctx, []model.Record{rec(model.Fail), rec(model.Fail), rec(model.Fail)})
			So(errors.Is(err, errs.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("A class with one member fails", func() {
			_, _, err := fastTrainer().Train(ctx, []model.Record{rec(model.Fail), rec(model.Fail), rec(model.Pass)})
			So(errors.Is(err, errs.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("A bad test fraction is a validation error", func() {
			_, _, err := fastTrainer(WithTestSize(1)).Train(ctx, generate(200, 1))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("A cancelled context stops training", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := fastTrainer().Train(cancelled, generate(40, 2))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
