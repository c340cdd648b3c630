package csvstore

import (
	"bytes"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/edupredict/internal/domain/dataset"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
)

const header = "StudentID,Attendance (%),Study Hours per Day,Previous Marks (%),Assignment Score,Result\n"

func TestEncode(t *testing.T) {
	Convey("Given two records", t, func() {
		records := []model.Record{
			{ID: "STU0001", Attendance: 85, StudyHours: 3.5, PreviousMarks: 70, AssignmentScore: 65, Result: model.Fail},
			{ID: "STU0002", Attendance: 99, StudyHours: 7, PreviousMarks: 95, AssignmentScore: 98, Result: model.Pass},
		}

		Convey("When encoded", func() {
			var buf bytes.Buffer
			So(Encode(&buf, records), ShouldBeNil)

			Convey("Then the header and rows match the dataset layout", func() {
				So(buf.String(), ShouldEqual, header+
					"STU0001,85,3.5,70,65,Fail\n"+
					"STU0002,99,7,95,98,Pass\n")
			})
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given CSV text", t, func() {
		Convey("A valid file decodes", func() {
			records, err := Decode(strings.NewReader(header + "STU0001,85,3.5,70,65,Fail\n"))
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].StudyHours, ShouldEqual, 3.5)
			So(records[0].Result, ShouldEqual, model.Fail)
		})

		Convey("A header-only file yields no records", func() {
			records, err := Decode(strings.NewReader(header))
			So(err, ShouldBeNil)
			So(records, ShouldBeEmpty)
		})

		Convey("An empty file is rejected", func() {
			_, err := Decode(strings.NewReader(""))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(errors.Is(err, ErrHeader), ShouldBeTrue)
		})

		Convey("A renamed column is rejected", func() {
			_, err := Decode(strings.NewReader(strings.Replace(header, "Assignment Score", "Score", 1)))
			So(errors.Is(err, ErrHeader), ShouldBeTrue)
		})

		Convey("A bad number names its column", func() {
			_, err := Decode(strings.NewReader(header + "STU0001,abc,3.5,70,65,Fail\n"))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			field, ok := errs.FieldOf(err)
			So(ok, ShouldBeTrue)
			So(field, ShouldEqual, "Attendance (%)")
			So(err.Error(), ShouldContainSubstring, "line 2")
		})

		Convey("An unknown result is rejected", func() {
			_, err := Decode(strings.NewReader(header + "STU0001,85,3.5,70,65,Maybe\n"))
			field, _ := errs.FieldOf(err)
			So(field, ShouldEqual, "Result")
		})

		Convey("A short row is rejected", func() {
			_, err := Decode(strings.NewReader(header + "STU0001,85\n"))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestReadWrite(t *testing.T) {
	Convey("Given generated records", t, func() {
		records, err := dataset.NewGenerator(rand.New(rand.NewSource(5))).Generate(50)
		So(err, ShouldBeNil)
		path := filepath.Join(t.TempDir(), "data", "students.csv")

		Convey("When written and read back", func() {
			So(Write(path, records), ShouldBeNil)
			back, err := Read(path)
			So(err, ShouldBeNil)

			Convey("Then the records are unchanged", func() {
				So(back, ShouldResemble, records)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := Read(filepath.Join(t.TempDir(), "missing.csv"))

			Convey("Then the error is NotFound", func() {
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
