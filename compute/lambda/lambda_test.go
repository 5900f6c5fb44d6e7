package lambda

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/resilience"
)

type fakeAPI struct {
	in  *awslambda.InvokeInput
	out *awslambda.InvokeOutput
	err error
}

func (f *fakeAPI) Invoke(_ context.Context, in *awslambda.InvokeInput, _ ...func(*awslambda.Options)) (*awslambda.InvokeOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name   string
		out    *awslambda.InvokeOutput
		err    error
		wantOK bool
	}{
		{"accepted", &awslambda.InvokeOutput{StatusCode: 202}, nil, true},
		{"synchronous status", &awslambda.InvokeOutput{StatusCode: 200}, nil, false},
		{"function error", &awslambda.InvokeOutput{StatusCode: 202, FunctionError: aws.String("Unhandled")}, nil, false},
		{"transport error", nil, stderrors.New("throttled"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{out: tc.out, err: tc.err}
			err := NewWithAPI(api).Submit(context.Background(), compute.Invocation{
				Function: "vidpipe-mix-audio",
				Payload:  map[string]any{"node_id": "n1"},
			})

			if api.in == nil || aws.ToString(api.in.FunctionName) != "vidpipe-mix-audio" || api.in.InvocationType != types.InvocationTypeEvent {
				t.Fatalf("unexpected input %+v", api.in)
			}
			var payload map[string]any
			if jerr := json.Unmarshal(api.in.Payload, &payload); jerr != nil || payload["node_id"] != "n1" {
				t.Errorf("unexpected payload %s", api.in.Payload)
			}

			if tc.wantOK {
				if err != nil {
					t.Fatalf("expected acceptance, got %v", err)
				}
				return
			}
			if !errors.IsCode(err, errors.ErrCodeSubmissionFailed) {
				t.Fatalf("expected SUBMISSION_FAILED, got %v", err)
			}
		})
	}
}

func TestSubmit_BreakerOpens(t *testing.T) {
	api := &fakeAPI{err: stderrors.New("throttled")}
	inv := NewWithAPI(api)
	inv.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Name: "compute", MaxFailures: 2})

	for i := 0; i < 2; i++ {
		_ = inv.Submit(context.Background(), compute.Invocation{Function: "f"})
	}
	api.in = nil
	err := inv.Submit(context.Background(), compute.Invocation{Function: "f"})
	if !stderrors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if api.in != nil {
		t.Error("open circuit must not reach lambda")
	}
	if !errors.IsCode(err, errors.ErrCodeSubmissionFailed) {
		t.Errorf("expected SUBMISSION_FAILED, got %v", err)
	}
}
