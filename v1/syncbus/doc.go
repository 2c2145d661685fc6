// Package syncbus provides the pub/sub fabric syncraft uses to announce
// lock transitions and completed flushes across instances. Events carry
// no payload; the key itself (for example "flush:usage") is the signal.
// Backends exist for local memory, Redis pub/sub, NATS and Kafka.
package syncbus
