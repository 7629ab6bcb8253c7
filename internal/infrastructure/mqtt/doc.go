// Package mqtt is the device bus adapter: publish-only MQTT connectivity
// for Haven Core.
//
// Devices expose their state using the homie topic convention
// (homie/{device}/{node}/{property}); the core publishes commands to the
// /set suffix of a property topic and leaves the reported-state topics to
// the devices themselves. Reported state is ingested by a separate path
// that does not go through this package.
//
//	Haven Core → MQTT Broker → Devices (homie firmware)
//
// Publishing a command does not wait for the device to apply it; the
// response to the commanding session is produced as soon as the bus client
// accepts the publish. End-to-end confirmation arrives later through the
// device-state ingestion path.
//
// The client auto-reconnects with bounded backoff and arms a Last Will and
// Testament so the broker announces the core's crash on the system status
// topic.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.PropertySet("d1", "n1", "power")
//	err = client.Publish(topic, []byte("true"), 1, true)
package mqtt
