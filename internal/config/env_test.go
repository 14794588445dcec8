package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	env := fromViper(v)

	if env.AppAddr != ":8080" {
		t.Fatalf("expected :8080, got %q", env.AppAddr)
	}
	if env.ModifyCutoff != 2*time.Hour {
		t.Fatalf("expected 2h modify cutoff, got %s", env.ModifyCutoff)
	}
	if env.MaxGroupSeats != 10 {
		t.Fatalf("expected 10 max group seats, got %d", env.MaxGroupSeats)
	}
	if len(env.KafkaBrokers) != 0 {
		t.Fatalf("expected no kafka brokers, got %v", env.KafkaBrokers)
	}
	if env.DispatchBackoff != 500*time.Millisecond {
		t.Fatalf("expected 500ms backoff, got %s", env.DispatchBackoff)
	}
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("DB_HOST", "db:3306")
	v.Set("DB_NAME", "app")
	v.Set("DB_PARAMS", "parseTime=true")
	env := fromViper(v)

	if len(env.KafkaBrokers) != 2 || env.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", env.KafkaBrokers)
	}
	if got := env.DSN(); got != "root:@tcp(db:3306)/app?parseTime=true" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
