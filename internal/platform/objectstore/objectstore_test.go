package objectstore

import "testing"

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Endpoint:       "localhost:9000",
		AccessKey:      "a",
		SecretKey:      "b",
		Region:         "us-east-1",
		BucketDatasets: "datasets",
		BucketModels:   "models",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for scheme in endpoint")
	}

	invalid = valid
	invalid.BucketModels = ""
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for empty models bucket")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SGPT_MINIO_ENDPOINT", "minio.internal:9000")
	t.Setenv("SGPT_MINIO_USE_SSL", "true")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Endpoint != "minio.internal:9000" || !cfg.UseSSL {
		t.Fatalf("ConfigFromEnv()=%+v", cfg)
	}
}
