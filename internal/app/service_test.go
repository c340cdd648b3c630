package service_test

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/okian/edupredict/internal/adapters/csvstore"
	service "github.com/okian/edupredict/internal/app"
	"github.com/okian/edupredict/internal/config"
	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/predict"
	"github.com/okian/edupredict/internal/domain/schema"
	"github.com/okian/edupredict/internal/domain/training"
	"github.com/okian/edupredict/pkg/logger"
	"github.com/okian/edupredict/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// newService returns a service rooted in dir with a fast forest.
func newService(dir string, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Get()),
		service.WithDatasetPath(filepath.Join(dir, "data.csv")),
		service.WithModelPath(filepath.Join(dir, "model.json.gz")),
		service.WithRand(rand.New(rand.NewSource(7))),
		service.WithTrainerOptions(training.WithForestOptions(classifier.WithTrees(10))),
	}
	svc, err := service.New(append(base, opts...)...)
	So(err, ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc, err := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(err, ShouldBeNil)
			So(svc.DatasetPath(), ShouldEqual, service.DefaultDatasetPath)
			So(svc.ModelPath(), ShouldEqual, service.DefaultModelPath)
			So(svc.RecordCount(), ShouldEqual, service.DefaultRecordCount)
		})
	})

	Convey("Given options built from configuration", t, func() {
		cfg := config.New(context.Background())
		cfg.DatasetPath = "custom.csv"
		cfg.RecordCount = 50

		svc, err := service.New(service.FromConfig(cfg)...)

		Convey("Then the configured values are applied", func() {
			So(err, ShouldBeNil)
			So(svc.DatasetPath(), ShouldEqual, "custom.csv")
			So(svc.ModelPath(), ShouldEqual, cfg.ModelPath)
			So(svc.RecordCount(), ShouldEqual, 50)
		})
	})
}

func TestService_MetricsOptions(t *testing.T) {
	t.Cleanup(func() { metrics.Configure() })

	Convey("Given metrics settings from configuration", t, func() {
		cfg := config.New(context.Background())
		cfg.MetricsNamespace = "school"
		cfg.MetricsBuckets = []float64{0.5, 5}
		metrics.Configure(service.MetricsOptions(cfg)...)
		svc := newService(t.TempDir())

		Convey("When records are generated", func() {
			_, err := svc.Generate(context.Background(), 25, "")
			So(err, ShouldBeNil)

			Convey("Then they are counted under the configured namespace", func() {
				v, err := metrics.CounterValue(metrics.GetRegistry(), "school_pipeline_records_generated_total")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 25)
			})
		})

		Convey("When metrics are disabled", func() {
			cfg.MetricsEnabled = false
			metrics.Configure(service.MetricsOptions(cfg)...)
			_, err := svc.Generate(context.Background(), 25, "")
			So(err, ShouldBeNil)

			Convey("Then nothing is counted", func() {
				v, err := metrics.CounterValue(metrics.GetRegistry(), "school_pipeline_records_generated_total")
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Generate(t *testing.T) {
	Convey("Given a service with a seeded generator", t, func() {
		dir := t.TempDir()
		svc := newService(dir)
		ctx := context.Background()

		Convey("When generating records to the default path", func() {
			summary, err := svc.Generate(ctx, 300, "")
			So(err, ShouldBeNil)

			Convey("Then the dataset is written and summarized", func() {
				So(summary.Total, ShouldEqual, 300)
				So(summary.Pass+summary.Fail, ShouldEqual, 300)
				records, err := csvstore.Read(svc.DatasetPath())
				So(err, ShouldBeNil)
				So(records, ShouldHaveLength, 300)
				So(records[0].ID, ShouldEqual, "STU0001")
			})
		})

		Convey("When generating zero records", func() {
			out := filepath.Join(dir, "empty.csv")
			summary, err := svc.Generate(ctx, 0, out)

			Convey("Then a header-only file is written", func() {
				So(err, ShouldBeNil)
				So(summary.Total, ShouldEqual, 0)
				records, err := csvstore.Read(out)
				So(err, ShouldBeNil)
				So(records, ShouldBeEmpty)
			})
		})

		Convey("When the count is negative", func() {
			_, err := svc.Generate(ctx, -1, "")

			Convey("Then a validation error is returned and nothing is written", func() {
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				_, statErr := os.Stat(svc.DatasetPath())
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})
	})
}

func TestService_TrainAndPredict(t *testing.T) {
	Convey("Given a generated dataset", t, func() {
		dir := t.TempDir()
		report := filepath.Join(dir, "report.yaml")
		svc := newService(dir, service.WithReportPath(report))
		ctx := context.Background()
		_, err := svc.Generate(ctx, 400, "")
		So(err, ShouldBeNil)

		Convey("When training with default paths", func() {
			m, rep, err := svc.Train(ctx, "", "", "")
			So(err, ShouldBeNil)

			Convey("Then the artifact and report are written", func() {
				So(m.ID, ShouldNotBeEmpty)
				So(m.Features, ShouldResemble, schema.Names())
				So(rep.Accuracy, ShouldBeBetweenOrEqual, 0.0, 1.0)
				_, err := os.Stat(svc.ModelPath())
				So(err, ShouldBeNil)
				_, err = os.Stat(report)
				So(err, ShouldBeNil)
			})

			Convey("Then the current model is the trained one", func() {
				current, err := svc.CurrentModel(ctx)
				So(err, ShouldBeNil)
				So(current.ID, ShouldEqual, m.ID)
			})

			Convey("Then positional and JSON arguments agree", func() {
				byPos, err := svc.PredictArgs(ctx, "", []string{"95", "8", "90", "95"})
				So(err, ShouldBeNil)
				byJSON, err := svc.PredictArgs(ctx, "", []string{
					`{"attendance":95,"study_hours":8,"previous_marks":90,"assignment_score":95}`,
				})
				So(err, ShouldBeNil)
				So(byPos, ShouldResemble, byJSON)
				So(byPos.Result, ShouldBeIn, []model.Result{model.Pass, model.Fail})
			})

			Convey("Then a strong student scores above a weak one", func() {
				strong, err := svc.Predict(ctx, predict.Request{StudentID: "STU0001", Features: schema.Vector{98, 9, 95, 98}})
				So(err, ShouldBeNil)
				weak, err := svc.Predict(ctx, predict.Request{StudentID: "STU0002", Features: schema.Vector{50, 1, 40, 40}})
				So(err, ShouldBeNil)
				So(strong.Probability, ShouldBeGreaterThan, weak.Probability)
				So(weak.Result, ShouldEqual, model.Fail)
				So(strong.ModelID, ShouldEqual, m.ID)
				So(strong.StudentID, ShouldEqual, "STU0001")
			})

			Convey("Then malformed arguments are rejected", func() {
				_, err := svc.PredictArgs(ctx, "", []string{"95", "8"})
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
				_, err = svc.PredictArgs(ctx, "", []string{`{"attendance":95}`})
				So(errors.Is(err, errs.ErrMissingField), ShouldBeTrue)
			})

			Convey("Then history is reported as disabled", func() {
				_, err := svc.History(ctx, "STU0001", 10)
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, service.ErrHistoryDisabled), ShouldBeTrue)
			})
		})

		Convey("When no model has been trained", func() {
			_, err := svc.PredictArgs(ctx, "", []string{"95", "8", "90", "95"})

			Convey("Then the model is not found", func() {
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the dataset does not exist", func() {
			_, _, err := svc.Train(ctx, filepath.Join(dir, "missing.csv"), "", "")

			Convey("Then training fails with not found", func() {
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

// warnRecorder keeps warning messages and discards everything else.
type warnRecorder struct {
	mu    sync.Mutex
	warns []string
}

func (r *warnRecorder) Info(context.Context, string, ...logger.Field)  {}
func (r *warnRecorder) Error(context.Context, string, ...logger.Field) {}
func (r *warnRecorder) Debug(context.Context, string, ...logger.Field) {}
func (r *warnRecorder) Fatal(context.Context, string, ...logger.Field) {}
func (r *warnRecorder) Named(string) logger.Logger                     { return r }

func (r *warnRecorder) Warn(_ context.Context, msg string, _ ...logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *warnRecorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warns...)
}

func TestService_TrainScaleBeforeSplit(t *testing.T) {
	Convey("Given a service that scales before the split", t, func() {
		dir := t.TempDir()
		rec := &warnRecorder{}
		svc := newService(dir,
			service.WithLogger(rec),
			service.WithTrainerOptions(training.WithScaleBeforeSplit(true)))
		ctx := context.Background()
		_, err := svc.Generate(ctx, 300, "")
		So(err, ShouldBeNil)

		Convey("When a model is trained", func() {
			_, rep, err := svc.Train(ctx, "", "", "")
			So(err, ShouldBeNil)

			Convey("Then the optimistic evaluation is reported as a warning", func() {
				So(rep.ScaledBeforeSplit, ShouldBeTrue)
				So(rec.messages(), ShouldContain, "scaler fit on all records before the split; evaluation will be optimistic")
			})
		})
	})

	Convey("Given a service with the default split", t, func() {
		dir := t.TempDir()
		rec := &warnRecorder{}
		svc := newService(dir, service.WithLogger(rec))
		ctx := context.Background()
		_, err := svc.Generate(ctx, 300, "")
		So(err, ShouldBeNil)

		_, rep, err := svc.Train(ctx, "", "", "")
		So(err, ShouldBeNil)
		So(rep.ScaledBeforeSplit, ShouldBeFalse)
		So(rec.messages(), ShouldBeEmpty)
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without history", t, func() {
		svc := newService(t.TempDir())
		ctx := context.Background()

		Convey("When stopping before starting", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When starting twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			err := svc.Start(ctx)

			Convey("Then the second start is rejected", func() {
				So(errors.Is(err, service.ErrAlreadyStarted), ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats(ctx)

			Convey("Then history is off", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["history"], ShouldEqual, false)
				So(stats["cached_models"], ShouldEqual, 0)
			})
		})
	})
}
