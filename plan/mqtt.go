package plan

import (
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttOptions builds client options from cfg with environment overrides.
// It returns nil when no broker is configured.
func mqttOptions(cfg MQTTConfig) *mqtt.ClientOptions {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = cfg.Broker
	}
	if broker == "" {
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = cfg.ClientID
	}
	if clientID == "" {
		clientID = "plannotate"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = cfg.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = cfg.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("[MQTT] connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	})
	return opts
}

// ConnectMQTT creates a client and starts connecting in the background.
// When MQTT_BROKER and cfg.Broker are both empty MQTT is disabled and
// ConnectMQTT returns nil.
func ConnectMQTT(cfg MQTTConfig) mqtt.Client {
	opts := mqttOptions(cfg)
	if opts == nil {
		log.Println("[MQTT] disabled: no broker configured")
		return nil
	}
	client := mqtt.NewClient(opts)
	go connectWithRetry(client)
	return client
}

// connectWithRetry attempts to connect to the broker with exponential backoff.
func connectWithRetry(client mqtt.Client) {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		token := client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}
