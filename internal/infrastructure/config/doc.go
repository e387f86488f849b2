// Package config loads graybus.yaml.
//
// Values are resolved in three layers: built-in defaults, the YAML file,
// then GRAYBUS_* environment variables. Validate checks only the section of
// the selected backend, so a NATS deployment does not need MQTT settings.
//
// Keep broker secrets out of the file where possible and pass them through
// GRAYBUS_NATS_TOKEN, GRAYBUS_MQTT_PASSWORD or GRAYBUS_REDIS_PASSWORD.
//
//	cfg, err := config.Load("configs/graybus.yaml")
//	if err != nil {
//	    return err
//	}
//	conn, err := broker.Open(ctx, cfg, log)
package config
