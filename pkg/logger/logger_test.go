package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})
	})
}

func TestLoggerWriter(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithConsole(false)), ShouldBeNil)
		ctx := context.Background()

		Convey("When an info line is logged", func() {
			Get().Info(ctx, "test message", String("k", "v"), Int("n", 3))
			_ = Sync()

			Convey("Then the fields are encoded", func() {
				So(buf.String(), ShouldContainSubstring, "test message")
				So(buf.String(), ShouldContainSubstring, `"k":"v"`)
				So(buf.String(), ShouldContainSubstring, `"n":3`)
				So(buf.String(), ShouldContainSubstring, "source")
			})
		})

		Convey("When an error field is logged", func() {
			Get().Error(ctx, "boom", Error(errors.New("bad thing")))
			_ = Sync()

			Convey("Then the error text is encoded", func() {
				So(buf.String(), ShouldContainSubstring, "bad thing")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "visible")
			_ = Sync()

			Convey("Then info lines are dropped", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When a named logger is used", func() {
			Named("trainer").Info(ctx, "named line")
			_ = Sync()

			Convey("Then the name is included", func() {
				So(buf.String(), ShouldContainSubstring, "trainer")
			})
		})
	})
}

func TestLoggerFile(t *testing.T) {
	Convey("Given a logger with a rotating file sink", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "logs", "edupredict.log")
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFile(path)), ShouldBeNil)

		Convey("When a line is logged", func() {
			Get().Info(context.Background(), "to file")
			_ = Sync()

			Convey("Then the file contains it", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "to file")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString("WARNING"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() { l.Info(context.Background(), "ignored") }, ShouldNotPanic)
		So(l.Named("x"), ShouldNotBeNil)
	})
}
