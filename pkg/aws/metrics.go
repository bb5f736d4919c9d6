package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsClient publishes CloudWatch metric data. A disabled client drops
// every data point, so callers never need a nil check beyond the pointer.
type MetricsClient struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
}

func NewMetricsClient(cfg sdkaws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "Chocoberry"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
	}
}

// Datum is one CloudWatch data point.
type Datum struct {
	Name  string
	Value float64
	Unit  types.StandardUnit
}

func Count(name string) Datum {
	return Datum{Name: name, Value: 1, Unit: types.StandardUnitCount}
}

func Latency(name string, d time.Duration) Datum {
	return Datum{Name: name, Value: float64(d.Milliseconds()), Unit: types.StandardUnitMilliseconds}
}

// Put sends data sharing one set of dimensions in a single PutMetricData call.
func (m *MetricsClient) Put(ctx context.Context, dimensions map[string]string, data ...Datum) error {
	if !m.IsEnabled() || len(data) == 0 {
		return nil
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}

	now := time.Now()
	datums := make([]types.MetricDatum, 0, len(data))
	for _, d := range data {
		datums = append(datums, types.MetricDatum{
			MetricName: sdkaws.String(d.Name),
			Value:      sdkaws.Float64(d.Value),
			Unit:       d.Unit,
			Timestamp:  &now,
			Dimensions: dims,
		})
	}

	if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.namespace),
		MetricData: datums,
	}); err != nil {
		return fmt.Errorf("put %d metrics: %w", len(datums), err)
	}
	return nil
}

func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.Put(ctx, dimensions, Count(metricName))
}

func (m *MetricsClient) RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error {
	return m.Put(ctx, dimensions, Datum{Name: metricName, Value: value, Unit: types.StandardUnitNone})
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricCheckoutsStarted     = "CheckoutsStarted"
	MetricCheckoutsCommitted   = "CheckoutsCommitted"
	MetricCheckoutCommitFailed = "CheckoutCommitFailed"
	MetricCashbackRedeemed     = "CashbackRedeemed"
	MetricCashbackEarned       = "CashbackEarned"
	MetricNotificationsSent    = "NotificationsSent"
	MetricNotificationFailures = "NotificationFailures"

	MetricCatalogCacheHits   = "CatalogCacheHits"
	MetricCatalogCacheMisses = "CatalogCacheMisses"
)
