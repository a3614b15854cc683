package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/hashicorp/vault/api"
)

const secretTimeout = 15 * time.Second

func resolveSecret(provider, ref string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), secretTimeout)
	defer cancel()

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ctx, ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ctx, ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// resolveVault reads path#key from Vault using VAULT_ADDR and VAULT_TOKEN.
// KV v2 mounts nest the payload under "data"; both layouts are accepted.
func resolveVault(ctx context.Context, ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("invalid Vault reference %q: expected format path#key", ref)
	}

	addr := os.Getenv("VAULT_ADDR")
	token := os.Getenv("VAULT_TOKEN")
	if addr == "" || token == "" {
		return "", fmt.Errorf("VAULT_ADDR and VAULT_TOKEN must both be set")
	}

	vcfg := api.DefaultConfig()
	vcfg.Address = addr
	client, err := api.NewClient(vcfg)
	if err != nil {
		return "", fmt.Errorf("creating Vault client: %w", err)
	}
	client.SetToken(token)

	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("reading Vault secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret found at %s", path)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	str, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("key %q missing or not a string in Vault secret at %s", key, path)
	}
	return str, nil
}

// resolveAWSSecretsManager reads name or name#stage from Secrets Manager.
func resolveAWSSecretsManager(ctx context.Context, ref string) (string, error) {
	name, stage, _ := strings.Cut(ref, "#")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)}
	if stage != "" {
		input.VersionStage = aws.String(stage)
	}

	out, err := secretsmanager.NewFromConfig(awsCfg).GetSecretValue(ctx, input)
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value", name)
	}
	return *out.SecretString, nil
}
