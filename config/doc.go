// Package config provides configuration loading for semrcl processes.
//
// Configuration is a YAML file layered on top of Default and then on top
// of environment overrides:
//
//	version: "1.0.0"
//	transport:
//	  kind: nats            # inproc or nats
//	  keep_all_limit: 1000
//	  nats:
//	    urls: ["nats://localhost:4222"]
//	    prefix: semrcl
//	    reconnect_wait: 2s
//	    retry:
//	      max_retries: 3
//	      initial_delay: 100ms
//	logging:
//	  level: info           # debug, info, warn, error
//	  format: text          # text or json
//	arguments: ["--ros-args", "-r", "chatter:=news"]
//	wait_set:
//	  timeout: 100ms
//
// Unknown keys are rejected. Validation failures wrap
// errors.ErrInvalidConfig or errors.ErrMissingConfig.
//
// # Basic Usage
//
//	cfg, err := config.LoadFromEnv() // file named by SEMRCL_CONFIG, or defaults
//	if err != nil {
//		log.Fatal(err)
//	}
//	tr, closeFn, err := config.NewTransport(ctx, cfg, logger, metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer closeFn(ctx)
//
// # Environment Variable Overrides
//
//	SEMRCL_TRANSPORT        transport.kind
//	SEMRCL_NATS_URLS        transport.nats.urls (comma-separated)
//	SEMRCL_NATS_USERNAME    transport.nats.username
//	SEMRCL_NATS_PASSWORD    transport.nats.password
//	SEMRCL_NATS_TOKEN       transport.nats.token
//	SEMRCL_NATS_PREFIX      transport.nats.prefix
//	SEMRCL_KEEP_ALL_LIMIT   transport.keep_all_limit
//	SEMRCL_LOG_LEVEL        logging.level
//	SEMRCL_LOG_FORMAT       logging.format
//
// # Thread-Safe Access
//
// SafeConfig hands out deep copies and validates before replacing:
//
//	sc := config.NewSafeConfig(cfg)
//	current := sc.Get()
//	current.Logging.Level = "debug"
//	if err := sc.Update(current); err != nil {
//		...
//	}
package config
