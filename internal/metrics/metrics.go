// Package metrics регистрирует метрики Prometheus приложения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contractor"

var (
	// AccessDecisions решения о доступе по причине.
	AccessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Access decisions by reason.",
	}, []string{"reason"})

	// SourceFailures сбои внешних источников при проверке доступа.
	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access",
		Name:      "source_failures_total",
		Help:      "Failed entitlement source calls by source and platform.",
	}, []string{"source", "platform"})

	// LinkWrites записи, синтезированные проходом связывания.
	LinkWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "access",
		Name:      "link_writes_total",
		Help:      "Entitlement records written by the link pass, by target platform.",
	}, []string{"platform"})

	// ToolCalls вызовы инструментов ассистента по персоне, инструменту и исходу.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assistant",
		Name:      "tool_calls_total",
		Help:      "Assistant tool invocations by persona, tool and outcome.",
	}, []string{"persona", "tool", "outcome"})

	// LLMDuration длительность запросов к языковой модели.
	LLMDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "assistant",
		Name:      "llm_request_duration_seconds",
		Help:      "Language model request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "phase"})

	// WebhookRequests входящие вебхуки биллинга по провайдеру и статусу ответа.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Billing webhook requests by provider and HTTP status.",
	}, []string{"provider", "status"})

	// JobsProcessed задания очередей по очереди и исходу.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Queue jobs processed by queue and outcome.",
	}, []string{"queue", "outcome"})
)
