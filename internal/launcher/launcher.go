// Package launcher starts one isolated transcoding task per job. The launch
// call is synchronous up to the task API's acknowledgment; transcoding
// completion is supervised through the queue's redelivery, not here.
package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// Config holds task launch configuration
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Cluster         string
	TaskDefinition  string
	ContainerName   string
	Subnets         []string
	SecurityGroups  []string
	AssignPublicIP  bool
	OutputBucket    string
	RedisURL        string
}

// TaskParams are the per-job parameters passed to the worker through its
// task environment.
type TaskParams struct {
	JobID        string
	SourceBucket string
	SourceKey    string
	Resolutions  []string
}

// Launcher starts transcoding tasks on the compute substrate
type Launcher struct {
	ecs    *ecs.Client
	config *Config
	logger *slog.Logger
}

// NewLauncher creates a new task launcher
func NewLauncher(ctx context.Context, config *Config, logger *slog.Logger) (*Launcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID, config.SecretAccessKey, "",
		)),
		awsconfig.WithRegion(config.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load launcher config: %w", err)
	}

	logger.Info("Task launcher initialized",
		slog.String("cluster", config.Cluster),
		slog.String("task_definition", config.TaskDefinition),
	)

	return &Launcher{
		ecs:    ecs.NewFromConfig(awsCfg),
		config: config,
		logger: logger,
	}, nil
}

// Launch starts one transcoding task for a job. It returns once the task
// API acknowledges the launch.
func (l *Launcher) Launch(ctx context.Context, params TaskParams) error {
	resolutions, err := json.Marshal(params.Resolutions)
	if err != nil {
		return fmt.Errorf("failed to encode resolutions: %w", err)
	}

	assignPublicIP := types.AssignPublicIpDisabled
	if l.config.AssignPublicIP {
		assignPublicIP = types.AssignPublicIpEnabled
	}

	env := []types.KeyValuePair{
		{Name: aws.String("BUCKET_NAME"), Value: aws.String(params.SourceBucket)},
		{Name: aws.String("KEY"), Value: aws.String(params.SourceKey)},
		{Name: aws.String("JOB_ID"), Value: aws.String(params.JobID)},
		{Name: aws.String("FINAL_BUCKET_NAME"), Value: aws.String(l.config.OutputBucket)},
		{Name: aws.String("RESOLUTIONS"), Value: aws.String(string(resolutions))},
		{Name: aws.String("REDIS_URL"), Value: aws.String(l.config.RedisURL)},
		{Name: aws.String("AWS_REGION"), Value: aws.String(l.config.Region)},
		{Name: aws.String("AWS_ACCESS_KEY_ID"), Value: aws.String(l.config.AccessKeyID)},
		{Name: aws.String("AWS_SECRET_ACCESS_KEY"), Value: aws.String(l.config.SecretAccessKey)},
	}

	_, err = l.ecs.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:        aws.String(l.config.Cluster),
		TaskDefinition: aws.String(l.config.TaskDefinition),
		LaunchType:     types.LaunchTypeFargate,
		NetworkConfiguration: &types.NetworkConfiguration{
			AwsvpcConfiguration: &types.AwsVpcConfiguration{
				Subnets:        l.config.Subnets,
				SecurityGroups: l.config.SecurityGroups,
				AssignPublicIp: assignPublicIP,
			},
		},
		Overrides: &types.TaskOverride{
			ContainerOverrides: []types.ContainerOverride{
				{
					Name:        aws.String(l.config.ContainerName),
					Environment: env,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch task for job %s: %w", params.JobID, err)
	}

	l.logger.Info("Transcoding task launched",
		slog.String("job_id", params.JobID),
		slog.String("source_key", params.SourceKey),
	)

	return nil
}
