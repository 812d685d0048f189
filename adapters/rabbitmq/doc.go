/*
Package rabbitmq publishes product notifications to a RabbitMQ topic exchange.
Routing keys are notification topics. It includes an auto-reconnect publisher
and supports optional header propagation via a bus.HeaderPropagator.
*/
package rabbitmq
