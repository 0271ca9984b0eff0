package logging

import (
	"context"
)

const (
	EventIDKey      = "event_id"
	CameraIDKey     = "camera_id"
	OrgIDKey        = "organization_id"
	ServiceNameKey  = "service_name"
	RequestIDKey    = "request_id"
)

func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, EventIDKey, eventID)
}

func WithCameraID(ctx context.Context, cameraID string) context.Context {
	return context.WithValue(ctx, CameraIDKey, cameraID)
}

func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, OrgIDKey, orgID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetEventID(ctx context.Context) string {
	return stringValue(ctx, EventIDKey)
}

func GetCameraID(ctx context.Context) string {
	return stringValue(ctx, CameraIDKey)
}

func GetOrgID(ctx context.Context) string {
	return stringValue(ctx, OrgIDKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

func stringValue(ctx context.Context, key string) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetLogFields collects the per-request fields carried in the context in a
// form ready to pass to a sugared logger.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	if eventID := GetEventID(ctx); eventID != "" {
		fields = append(fields, "event_id", eventID)
	}

	if cameraID := GetCameraID(ctx); cameraID != "" {
		fields = append(fields, "camera_id", cameraID)
	}

	if orgID := GetOrgID(ctx); orgID != "" {
		fields = append(fields, "organization_id", orgID)
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
