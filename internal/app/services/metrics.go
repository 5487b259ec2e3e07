package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_events_total",
	Help: "Inbound membership events handled by the moderation pipeline.",
}, []string{"kind"})

var kicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_blacklist_kicks_total",
	Help: "Kick attempts against blacklisted users, by result.",
}, []string{"result"})

var autoBlacklistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_auto_blacklist_total",
	Help: "Automatic blacklist decisions on departure, by result.",
}, []string{"result"})

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_notifications_total",
	Help: "Throttled notifications, by class and decision.",
}, []string{"class", "decision"})

var permissionLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_permission_lookups_total",
	Help: "Permission resolutions by source (cache, live, fallback).",
}, []string{"source"})

var commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_commands_total",
	Help: "Administrative commands by name and result.",
}, []string{"command", "result"})

var pipelinePanics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guard_pipeline_panics_total",
	Help: "Panics recovered at the event boundary.",
})
