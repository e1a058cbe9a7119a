// Package config loads the vstore.yaml file used by the vstore command.
//
// # Configuration File Structure
//
//	server:
//	  addr: localhost:7070
//	  metrics: true
//	logging:
//	  level: info
//	  format: text
//	backend:
//	  driver: redis            # memory, redis, sqlite, s3, etcd
//	  codec: json
//	  timeout: 5s
//	  redis:
//	    url: ${REDIS_URL}
//	    prefix: "app:"
//	stores:
//	  - name: cart
//	    kind: local            # session, local, memory
//	    initial: {items: 0}
//	derived:
//	  - name: total
//	    sources: [cart]
//	    expr: cart.items * 10
//
// ${VAR} references are replaced with environment variables before the
// file is parsed. Derived stores may only refer to stores and derived
// stores declared before them.
package config
