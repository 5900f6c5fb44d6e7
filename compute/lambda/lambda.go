// Package lambda submits invocations as asynchronous AWS Lambda calls
// (InvocationType Event). Lambda answers 202 once the event is queued.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/resilience"
)

// API is the subset of the Lambda client used here.
type API interface {
	Invoke(ctx context.Context, in *awslambda.InvokeInput, optFns ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error)
}

// Invoker calls Lambda functions asynchronously.
type Invoker struct {
	api     API
	breaker *resilience.CircuitBreaker
}

var _ compute.Invoker = (*Invoker)(nil)

// New loads AWS configuration and builds a Lambda client.
func New(ctx context.Context, cfg compute.Config) (*Invoker, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("compute: load aws config: %w", err)
	}
	client := awslambda.NewFromConfig(awsCfg, func(o *awslambda.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	inv := NewWithAPI(client)
	if bc := cfg.Breaker(); bc != nil {
		inv.breaker = resilience.NewCircuitBreaker(*bc)
	}
	return inv, nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API) *Invoker {
	return &Invoker{api: api}
}

func (i *Invoker) Submit(ctx context.Context, inv compute.Invocation) error {
	payload, err := json.Marshal(inv.Payload)
	if err != nil {
		return errors.SubmissionFailed(inv.Function, fmt.Errorf("encoding payload: %w", err))
	}
	in := &awslambda.InvokeInput{
		FunctionName:   aws.String(inv.Function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	}
	var out *awslambda.InvokeOutput
	call := func() error {
		out, err = i.api.Invoke(ctx, in)
		return err
	}
	if i.breaker != nil {
		err = i.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return errors.SubmissionFailed(inv.Function, err)
	}
	if out.StatusCode != http.StatusAccepted {
		return errors.SubmissionFailed(inv.Function, fmt.Errorf("lambda returned status %d", out.StatusCode))
	}
	if out.FunctionError != nil {
		return errors.SubmissionFailed(inv.Function, fmt.Errorf("lambda function error: %s", aws.ToString(out.FunctionError)))
	}
	return nil
}
