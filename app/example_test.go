package app_test

import (
	"context"

	"github.com/advdv/broute"
	"github.com/advdv/broute/app"
	"github.com/advdv/broute/multipart"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Env defines the environment variables for the application.
type Env struct {
	app.BaseEnvironment
	ReportsBucket string `env:"REPORTS_BUCKET,required"`
}

// ReportHandlers receives uploaded reports.
type ReportHandlers struct {
	rt *app.Runtime[Env]
	s3 *s3.Client
}

func NewReportHandlers(rt *app.Runtime[Env], s3 *s3.Client) *ReportHandlers {
	return &ReportHandlers{rt: rt, s3: s3}
}

// Upload archives the "report" part of a multipart body.
func (h *ReportHandlers) Upload(ctx context.Context, form *multipart.Form, report *multipart.Part) (string, error) {
	if report == nil {
		return "", broute.Errorf(broute.CodeBadRequest, "missing report")
	}

	key, err := h.rt.Archive(ctx, form, report)
	if err != nil {
		return "", err
	}

	app.Log(ctx).Info("archived report",
		zap.String("key", key),
		zap.String("reports_bucket", h.rt.Env().ReportsBucket))

	return key, nil
}

func ExampleNewApp() {
	a := app.NewApp[Env](func(m *app.Mux, h *ReportHandlers) {
		m.Handle("POST /reports", broute.Func(h.Upload, "form", "report"), "upload-report")
	},
		app.WithAWSClient(func(cfg aws.Config) *s3.Client {
			return s3.NewFromConfig(cfg)
		}),
		app.WithFx(fx.Provide(NewReportHandlers)),
	)

	_ = a // a.Run() blocks until interrupted
}
