package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

// Resolve looks up the base LoggerService registered in the container and,
// when name is set, returns the matching named logger (e.g. "store" or "dispatch/lane").
func Resolve(ctx context.Context, sc *container.ServiceContainer, name string) (LoggerService, error) {
	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("failed to resolve logger '%s': no logger service registered", name)
	}

	base, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved logger '%s' is not a LoggerService", name)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return base, nil
	}

	for _, part := range strings.Split(name, "/") {
		if part = strings.TrimSpace(part); part != "" {
			base = base.Named(part)
		}
	}
	return base, nil
}
