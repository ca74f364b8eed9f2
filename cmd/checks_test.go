package cmd

import (
	"testing"

	"github.com/heroverse/apiserver/config"
)

func TestCheckSeedStore(t *testing.T) {
	cases := []struct {
		driver  string
		wantErr bool
	}{
		{"", true},
		{config.StoreMemory, true},
		{config.StorePostgres, false},
		{config.StoreMongo, false},
	}
	for _, tc := range cases {
		if err := checkSeedStore(tc.driver); (err != nil) != tc.wantErr {
			t.Fatalf("checkSeedStore(%q) = %v, wantErr %v", tc.driver, err, tc.wantErr)
		}
	}
}

func TestCheckTailBackend(t *testing.T) {
	cases := []struct {
		backend string
		wantErr bool
	}{
		{config.MQNone, true},
		{config.MQMemory, true},
		{config.MQRabbitMQ, false},
		{config.MQPubSub, false},
	}
	for _, tc := range cases {
		if err := checkTailBackend(config.MQConfig{Backend: tc.backend}); (err != nil) != tc.wantErr {
			t.Fatalf("checkTailBackend(%q) = %v, wantErr %v", tc.backend, err, tc.wantErr)
		}
	}
}
