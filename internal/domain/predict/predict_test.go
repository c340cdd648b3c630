package predict

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/dataset"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/schema"
	"github.com/okian/edupredict/internal/domain/training"
)

func trainedModel() *classifier.Trained {
	records, err := dataset.NewGenerator(rand.New(rand.NewSource(11))).Generate(600)
	So(err, ShouldBeNil)
	m, _, err := training.New(training.WithForestOptions(classifier.WithTrees(20))).Train(context.Background(), records)
	So(err, ShouldBeNil)
	return m
}

func TestPredict(t *testing.T) {
	Convey("Given a trained model", t, func() {
		m := trainedModel()

		Convey("When a vector is classified", func() {
			v, err := ParsePositional([]string{"85", "3.5", "70", "65"})
			So(err, ShouldBeNil)
			p, err := Predict(m, v)
			So(err, ShouldBeNil)

			Convey("Then the label is binary and the probability a ratio", func() {
				So(p.Result, ShouldBeIn, model.Pass, model.Fail)
				So(p.Probability, ShouldBeBetweenOrEqual, 0.0, 1.0)
				So(p.Result == model.Pass, ShouldEqual, p.Probability > 0.5)
			})

			Convey("Then repeated predictions are identical", func() {
				for i := 0; i < 5; i++ {
					again, err := Predict(m, v)
					So(err, ShouldBeNil)
					So(again, ShouldResemble, p)
				}
			})
		})

		Convey("When a strong and a weak student are compared", func() {
			strong, err := Predict(m, schema.Vector{100, 8, 100, 100})
			So(err, ShouldBeNil)
			weak, err := Predict(m, schema.Vector{40, 0.5, 30, 30})
			So(err, ShouldBeNil)

			Convey("Then the strong student is more likely to pass", func() {
				So(strong.Probability, ShouldBeGreaterThan, weak.Probability)
			})
		})

		Convey("When JSON and positional input describe the same student", func() {
			a, err := ParseJSON(`{"attendance": 85, "study_hours": "3.5", "previous_marks": 70, "assignment_score": 65}`)
			So(err, ShouldBeNil)
			b, err := ParseArgs([]string{"85", "3.5", "70", "65"})
			So(err, ShouldBeNil)
			c, err := ParseArgs([]string{`{"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`})
			So(err, ShouldBeNil)

			Convey("Then they predict the same outcome", func() {
				pa, _ := Predict(m, a)
				pb, _ := Predict(m, b)
				pc, _ := Predict(m, c)
				So(pa, ShouldResemble, pb)
				So(pc, ShouldResemble, pb)
			})
		})

		Convey("When the vector has the wrong length", func() {
			_, err := Predict(m, schema.Vector{1, 2})
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestParseErrors(t *testing.T) {
	Convey("Given bad input", t, func() {
		Convey("Non-numeric attendance names the field", func() {
			_, err := ParsePositional([]string{"abc", "3.5", "70", "65"})
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			field, ok := errs.FieldOf(err)
			So(ok, ShouldBeTrue)
			So(field, ShouldEqual, "attendance")
		})

		Convey("A missing key is MissingField", func() {
			_, err := ParseJSON(`{"attendance": 85, "previous_marks": 70, "assignment_score": 65}`)
			So(errors.Is(err, errs.ErrMissingField), ShouldBeTrue)
			field, _ := errs.FieldOf(err)
			So(field, ShouldEqual, "study_hours")
		})

		Convey("Malformed JSON is a validation error", func() {
			_, err := ParseJSON(`{"attendance": 85,`)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(errors.Is(err, schema.ErrMalformedJSON), ShouldBeTrue)
		})

		Convey("Too few positional values is a validation error", func() {
			_, err := ParseArgs([]string{"85", "3.5"})
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestPredictWithoutModel(t *testing.T) {
	Convey("Given a nil model", t, func() {
		_, err := Predict(nil, schema.Vector{1, 2, 3, 4})
		So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
	})

	Convey("Given a model with no fitted pipeline", t, func() {
		_, err := Predict(&classifier.Trained{ID: "empty"}, schema.Vector{1, 2, 3, 4})
		So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
	})
}
