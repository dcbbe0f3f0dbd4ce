package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given a logger initialised on a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		defer func() { _ = Init() }()

		ctx := context.Background()

		Convey("When logging at info level", func() {
			Get().Info(ctx, "snapshot stored", String("tag", "#2PR8R8V8P"), Int("day", 3))

			Convey("Then the record carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "snapshot stored")
				So(out, ShouldContainSubstring, "tag=#2PR8R8V8P")
				So(out, ShouldContainSubstring, "day=3")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the configured level", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "visible", Error(errors.New("boom")))

			Convey("Then only the warning is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "visible")
				So(buf.String(), ShouldContainSubstring, "error=boom")
			})
		})

		Convey("When using a named logger", func() {
			Named("worker").Info(ctx, "started")

			Convey("Then the component is attached", func() {
				So(buf.String(), ShouldContainSubstring, "component=worker")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString(" INFO "), ShouldBeNil)
		So(SetLevelString("warning"), ShouldBeNil)
		So(SetLevelString("error"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestDiscard(t *testing.T) {
	Convey("Given a discarding logger", t, func() {
		l := Discard()

		Convey("Then logging does not panic", func() {
			So(func() { l.Named("x").Debug(context.Background(), "nothing") }, ShouldNotPanic)
		})
	})
}
