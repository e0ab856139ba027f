package log

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"go.uber.org/zap"
)

// NewAmazonLogger returns an aws.Logger that writes to the logger in ctx at level debug.
func NewAmazonLogger(ctx context.Context) aws.Logger {
	l := extractLogger(ctx).Named("aws").WithOptions(zap.AddCallerSkip(1))
	return aws.LoggerFunc(func(args ...any) {
		l.Debug(fmt.Sprint(args...))
	})
}
