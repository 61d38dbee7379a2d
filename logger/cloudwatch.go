package logger

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	defaultNamespace = "Pontosflow"
	// cloudWatchBatch is the PutMetricData per-request datum limit.
	cloudWatchBatch = 1000
)

type metricsPublisher struct {
	client    *cloudwatch.Client
	namespace string
	dashboard string
}

// publisher is nil until InitCloudWatch succeeds; publishing is a no-op
// without it.
var publisher *metricsPublisher

// InitCloudWatch enables metric publishing. An empty region falls back to
// AWS_REGION. Failures only disable publishing.
func InitCloudWatch(ctx context.Context, region, namespace, dashboard string) {
	log := GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	if namespace == "" {
		namespace = defaultNamespace
	}
	if dashboard == "" {
		dashboard = namespace
	}
	publisher = &metricsPublisher{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		dashboard: dashboard,
	}
	log.WithFields(Fields{"region": region, "namespace": namespace}).Info("initialized CloudWatch client")

	publisher.putDashboard(ctx)
}

func publishMetrics(ctx context.Context, data []cwtypes.MetricDatum) {
	p := publisher
	if p == nil || len(data) == 0 {
		return
	}
	log := GetLogger().WithComponent("cloudwatch")

	for start := 0; start < len(data); start += cloudWatchBatch {
		end := start + cloudWatchBatch
		if end > len(data) {
			end = len(data)
		}
		if _, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data[start:end],
		}); err != nil {
			log.WithError(err).Warn("failed to publish CloudWatch metrics")
			return
		}
	}
	log.WithFields(Fields{"metrics": metricNames(data)}).Debug("published metrics to CloudWatch")
}

func metricNames(data []cwtypes.MetricDatum) string {
	names := make([]string, 0, len(data))
	for _, d := range data {
		names = append(names, aws.ToString(d.MetricName))
	}
	return strings.Join(names, ",")
}

type dashboardWidget struct {
	Type       string           `json:"type"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Properties widgetProperties `json:"properties"`
}

type widgetProperties struct {
	Metrics [][]interface{} `json:"metrics"`
	Period  int             `json:"period"`
	Stat    string          `json:"stat"`
	Title   string          `json:"title"`
}

// dashboardBody renders the fetch and export panels for namespace.
func dashboardBody(namespace string) (string, error) {
	widget := func(title string, metrics ...[]interface{}) dashboardWidget {
		return dashboardWidget{
			Type:   "metric",
			Width:  12,
			Height: 6,
			Properties: widgetProperties{
				Metrics: metrics,
				Period:  300,
				Stat:    "Sum",
				Title:   title,
			},
		}
	}
	body := map[string][]dashboardWidget{
		"widgets": {
			widget("Pontos fetches",
				[]interface{}{namespace, "Fetches"},
				[]interface{}{namespace, "Samples"},
				[]interface{}{namespace, "Errors"},
			),
			widget("Exports",
				[]interface{}{namespace, "FilesWritten"},
				[]interface{}{namespace, "Uploads"},
				[]interface{}{namespace, "RunDuration", map[string]string{"stat": "Average"}},
			),
		},
	}
	b, err := json.Marshal(body)
	return string(b), err
}

func (p *metricsPublisher) putDashboard(ctx context.Context) {
	log := GetLogger().WithComponent("cloudwatch")
	body, err := dashboardBody(p.namespace)
	if err != nil {
		log.WithError(err).Warn("failed to render CloudWatch dashboard")
		return
	}
	if _, err := p.client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(p.dashboard),
		DashboardBody: aws.String(body),
	}); err != nil {
		log.WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}
