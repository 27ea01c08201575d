package metrics

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"quoteflow/internal/market"
	"quoteflow/logger"
)

type cloudWatchState struct {
	client        *cloudwatch.Client
	namespace     string
	dashboardName string
}

var cwState atomic.Pointer[cloudWatchState]

func init() {
	cwState.Store(&cloudWatchState{
		namespace:     "QuoteFlow",
		dashboardName: "QuoteFlow",
	})
}

// InitCloudWatch initialises the CloudWatch client using the provided region
// and namespace. If region is empty it falls back to the AWS_REGION
// environment variable. When the client cannot be created the function logs a
// warning and publishing stays disabled.
func InitCloudWatch(region, namespace string) {
	log := logger.GetLogger().WithComponent("cloudwatch")

	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	ctx := context.Background()
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}

	state := *cwState.Load()
	state.client = cloudwatch.NewFromConfig(cfg)
	if namespace != "" {
		state.namespace = namespace
		state.dashboardName = namespace
	}
	cwState.Store(&state)

	log.WithFields(logger.Fields{
		"region":    region,
		"namespace": state.namespace,
	}).Info("initialized CloudWatch client")

	createDefaultDashboard(ctx, &state)
}

func publish(ctx context.Context, src market.Source, c Counts) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}

	dims := []cwtypes.Dimension{{Name: aws.String("source"), Value: aws.String(string(src))}}
	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("Frames"), Dimensions: dims, Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.Frames))},
		{MetricName: aws.String("Reconnects"), Dimensions: dims, Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.Reconnects))},
		{MetricName: aws.String("Drops"), Dimensions: dims, Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(c.Drops))},
	}

	if _, err := state.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(state.namespace),
		MetricData: data,
	}); err != nil {
		logger.GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to publish CloudWatch metrics")
	}
}

// createDefaultDashboard ensures a basic dashboard exists when the CloudWatch
// client has been configured. Failures are logged but do not stop execution.
func createDefaultDashboard(ctx context.Context, state *cloudWatchState) {
	body := fmt.Sprintf(`{
"widgets": [{
"type": "metric",
"width": 24,
"height": 6,
"properties": {
"metrics": [
    ["%[1]s","Frames"],
    ["%[1]s","Reconnects"],
    ["%[1]s","Drops"]
],
"period": 60,
"stat": "Sum",
"title": "QuoteFlow Source Counters"
}
}]
}`, state.namespace)

	if _, err := state.client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(state.dashboardName),
		DashboardBody: aws.String(body),
	}); err != nil {
		logger.GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}
