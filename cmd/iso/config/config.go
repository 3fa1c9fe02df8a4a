// Package configcmder provides the config command for managing persistent
// iso configuration stored in the .iso/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent iso configuration.

Configuration is stored as config.toml in the .iso/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_url,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  model.provider, model.target, model.api_key,
  recall.max_records, recall.queue_size, recall.workers, recall.retries,
  events.provider, events.brokers, events.topic,
  personas.dir

Use subcommands to get, set, or list configuration values:
  iso config set <key> <value>    Set a configuration value
  iso config get <key>            Get a configuration value
  iso config list                 List all configuration values

Examples:
  iso config set model.provider openai
  iso config set embedding.model nomic-embed-text
  iso config get storage.driver
  iso config list`

const configShortDesc string = "Manage persistent iso configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
