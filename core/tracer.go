package core

import (
	"reflect"

	"go.opentelemetry.io/otel/trace"
)

// WithChainAttributes sets the chain name of a span.
func WithChainAttributes(chainName string) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyChain.String(chainName))
}

// WithBridgeAttributes sets the source and target chain names of a span.
func WithBridgeAttributes(source, target string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttributeKeySource.String(source),
		AttributeKeyTarget.String(target),
	)
}

// WithPackage adds the package name of the function/method `v`
func WithPackage(v any) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyPackage.String(getPackageName(v)))
}

func getPackageName(v any) string {
	if v == nil {
		return ""
	}

	rt := reflect.TypeOf(v)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt.PkgPath()
}
