// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"net/http"

	"github.com/GermanBionicSystems/scd/sensirion"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const idLabel = "sensor_id"

type metrics struct {
	reg         *prometheus.Registry
	co2         *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	humidity    *prometheus.GaugeVec
	readErrors  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		co2: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scd_co2_ppm",
			Help: "CO2 concentration in parts per million",
		}, []string{idLabel}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scd_temperature_celsius",
			Help: "Temperature in degrees Celsius",
		}, []string{idLabel}),
		humidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scd_humidity_percent",
			Help: "Relative humidity in percent",
		}, []string{idLabel}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scd_read_errors_total",
			Help: "Failed sensor transactions",
		}, []string{idLabel}),
	}
	m.reg.MustRegister(
		m.co2, m.temperature, m.humidity, m.readErrors,
		prometheus.NewGoCollector(),
		prometheus.NewBuildInfoCollector(),
	)
	return m
}

func (m *metrics) observe(id string, env *sensirion.Env) {
	m.co2.WithLabelValues(id).Set(float64(env.CO2))
	m.temperature.WithLabelValues(id).Set(env.Temperature.Celsius())
	m.humidity.WithLabelValues(id).Set(percentRH(env.Humidity))
}

func (m *metrics) failed(id string) {
	m.readErrors.WithLabelValues(id).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
