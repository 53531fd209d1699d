package telemetry_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel"

	"github.com/okian/huddle/pkg/telemetry"
)

func TestSetup(t *testing.T) {
	Convey("Given no endpoint", t, func() {
		before := otel.GetTracerProvider()
		shutdown, err := telemetry.Setup(context.Background(), "huddle", "  ")

		Convey("Then tracing stays disabled", func() {
			So(err, ShouldBeNil)
			So(shutdown(context.Background()), ShouldBeNil)
			So(otel.GetTracerProvider(), ShouldEqual, before)
		})
	})

	Convey("Given an endpoint", t, func() {
		before := otel.GetTracerProvider()
		shutdown, err := telemetry.Setup(context.Background(), "huddle", "http://127.0.0.1:4318")

		Convey("Then a provider is registered and shuts down cleanly", func() {
			So(err, ShouldBeNil)
			So(otel.GetTracerProvider(), ShouldNotEqual, before)
			So(shutdown(context.Background()), ShouldBeNil)
		})
	})
}
