package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/errors"
	"github.com/iwtech/courier/scheduler"
)

// TemplateCmd groups email template management subcommands.
var TemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage email templates",
	Long: `Manage email templates. A template is an opaque subject/body pair;
no variable substitution is performed at send time.

Examples:
  courier template create --name welcome --subject "Welcome" --body-file welcome.html
  courier template ls
  courier template rm <id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var (
	templateNameFlag     string
	templateSubjectFlag  string
	templateBodyFlag     string
	templateBodyFileFlag string
)

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new template",
	RunE:  runTemplateCreate,
}

var templateLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all templates",
	RunE:  runTemplateLs,
}

var templateRmCmd = &cobra.Command{
	Use:   "rm <template-id>",
	Short: "Delete a template",
	Long: `Delete a template. Jobs referencing it keep running but lose the
reference and will fail delivery until repointed at another template.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateRm,
}

func init() {
	templateCreateCmd.Flags().StringVar(&templateNameFlag, "name", "", "Template name (required)")
	templateCreateCmd.Flags().StringVar(&templateSubjectFlag, "subject", "", "Email subject (required)")
	templateCreateCmd.Flags().StringVar(&templateBodyFlag, "body", "", "Email body")
	templateCreateCmd.Flags().StringVar(&templateBodyFileFlag, "body-file", "", "Read the email body from a file")
	templateCreateCmd.MarkFlagRequired("name")
	templateCreateCmd.MarkFlagRequired("subject")

	TemplateCmd.AddCommand(templateCreateCmd)
	TemplateCmd.AddCommand(templateLsCmd)
	TemplateCmd.AddCommand(templateRmCmd)
}

func runTemplateCreate(cmd *cobra.Command, args []string) error {
	body := templateBodyFlag
	if templateBodyFileFlag != "" {
		data, err := os.ReadFile(templateBodyFileFlag)
		if err != nil {
			return errors.Wrapf(err, "failed to read body file %s", templateBodyFileFlag)
		}
		body = string(data)
	}
	if body == "" {
		return errors.New("template body is required, pass --body or --body-file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	tmpl := &scheduler.Template{
		ID:      uuid.NewString(),
		Name:    templateNameFlag,
		Subject: templateSubjectFlag,
		Body:    body,
	}

	if err := scheduler.NewTemplateStore(database).CreateTemplate(tmpl); err != nil {
		return err
	}

	fmt.Printf("Created template %s (%s)\n", tmpl.ID, tmpl.Name)
	return nil
}

func runTemplateLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	templates, err := scheduler.NewTemplateStore(database).ListTemplates()
	if err != nil {
		return err
	}

	if len(templates) == 0 {
		fmt.Println("No templates")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %s\n", "ID", "NAME", "SUBJECT")
	for _, tmpl := range templates {
		fmt.Printf("%-36s  %-20s  %s\n", tmpl.ID, tmpl.Name, tmpl.Subject)
	}
	return nil
}

func runTemplateRm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer database.Close()

	if err := scheduler.NewTemplateStore(database).DeleteTemplate(args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted template %s\n", args[0])
	return nil
}
