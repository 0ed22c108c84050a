package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/dpsshare"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const (
	filePermission = 0o644
	dirPermission  = 0o755

	authorityPort     = 9000
	facilityBasePort  = 9100
	regionalBasePort  = 9200
	globalPort        = 9300
	defaultFeatures   = 8
	defaultCommittee  = 5
	defaultDifficulty = 4
	secretBytes       = 32
)

type provisionInput struct {
	Name       string
	Facilities string
	Regionals  string
	Scheme     string
	Threshold  string
	Rounds     string
	Epsilon    string
	Role       string
}

func defaultInput() provisionInput {
	return provisionInput{
		Name:       namegenerator.NewGenerator().Generate(),
		Facilities: "3",
		Regionals:  "3",
		Scheme:     string(sharing.Additive),
		Threshold:  "0",
		Rounds:     "3",
		Epsilon:    "5",
		Role:       "hospital",
	}
}

func NewProvisionCmd() *cobra.Command {
	var (
		yes    bool
		envDir string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a local federation",
		Long: `Interactively describe a federation and write its topology together with
one env file per role, ready to run every role on this host.

Examples:
  dpsshare-cli provision
  dpsshare-cli provision --yes --env-dir ./env`,
		Run: func(cmd *cobra.Command, _ []string) {
			in := defaultInput()
			if !yes {
				if err := provisionForm(&in).Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			cfg, err := buildTopology(in)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if err := cfg.Save(topologyPath); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Successfully created "+topologyPath)

			secret, err := newSecret()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			files, err := envFiles(cfg, secret)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if err := os.MkdirAll(envDir, dirPermission); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			for _, name := range slices.Sorted(maps.Keys(files)) {
				path := filepath.Join(envDir, name)
				if err := os.WriteFile(path, []byte(files[name]), filePermission); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				logSuccessCmd(*cmd, "Successfully created "+path)
			}

			logJSONCmd(*cmd, cfg)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept the defaults without prompting")
	cmd.Flags().StringVar(&envDir, "env-dir", ".", "Directory for the generated env files")

	return cmd
}

func provisionForm(in *provisionInput) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Deployment name").
				Value(&in.Name),
			huh.NewInput().
				Title("Facilities").
				Value(&in.Facilities).
				Validate(positiveInt),
			huh.NewInput().
				Title("Regional aggregators").
				Value(&in.Regionals).
				Validate(shareCount),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Secret sharing scheme").
				Options(huh.NewOptions(string(sharing.Additive), string(sharing.Shamir))...).
				Value(&in.Scheme),
			huh.NewInput().
				Title("Shamir threshold").
				Description("0 picks a majority of the regional aggregators").
				Value(&in.Threshold).
				Validate(nonNegativeInt),
			huh.NewInput().
				Title("Rounds").
				Value(&in.Rounds).
				Validate(positiveInt),
			huh.NewInput().
				Title("Privacy budget epsilon").
				Value(&in.Epsilon).
				Validate(positiveFloat),
			huh.NewInput().
				Title("Initial model role").
				Description("Facilities with this role decrypt the initial model").
				Value(&in.Role),
		),
	)
}

func buildTopology(in provisionInput) (*dpsshare.Config, error) {
	facilities, err := strconv.Atoi(in.Facilities)
	if err != nil {
		return nil, fmt.Errorf("invalid facility count: %w", err)
	}
	regionals, err := strconv.Atoi(in.Regionals)
	if err != nil {
		return nil, fmt.Errorf("invalid regional count: %w", err)
	}
	threshold, err := strconv.Atoi(in.Threshold)
	if err != nil {
		return nil, fmt.Errorf("invalid threshold: %w", err)
	}
	rounds, err := strconv.Atoi(in.Rounds)
	if err != nil {
		return nil, fmt.Errorf("invalid rounds: %w", err)
	}
	epsilon, err := strconv.ParseFloat(in.Epsilon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid epsilon: %w", err)
	}
	if sharing.Scheme(in.Scheme) == sharing.Shamir && threshold == 0 {
		threshold = regionals/2 + 1
	}

	cfg := &dpsshare.Config{
		Name:      in.Name,
		Authority: localURL(authorityPort),
		Global:    localURL(globalPort),
		Protocol: dpsshare.ProtocolConfig{
			Scheme:        in.Scheme,
			Threshold:     threshold,
			Rounds:        rounds,
			Difficulty:    defaultDifficulty,
			Epsilon:       epsilon,
			Sensitivity:   0.01,
			CommitteeSize: defaultCommittee,
		},
		Model: dpsshare.ModelConfig{
			Features: defaultFeatures,
		},
	}
	if in.Role != "" {
		cfg.Model.Policy = map[string]string{"role": in.Role}
	}
	for i := range regionals {
		cfg.Regionals = append(cfg.Regionals, dpsshare.Node{
			ID:  fmt.Sprintf("fog_%d", i),
			URL: localURL(regionalBasePort + i),
		})
	}
	for i := range facilities {
		f := dpsshare.FacilityNode{
			ID:  fmt.Sprintf("facility_%d", i),
			URL: localURL(facilityBasePort + i),
		}
		if in.Role != "" {
			f.Attributes = map[string]string{"role": in.Role}
		}
		cfg.Facilities = append(cfg.Facilities, f)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envFiles renders one env file per role, keyed by file name.
func envFiles(cfg *dpsshare.Config, secret string) (map[string]string, error) {
	files := make(map[string]string)

	port, err := urlPort(cfg.Authority)
	if err != nil {
		return nil, err
	}
	files["authority.env"] = renderEnv("authority", [][2]string{
		{"DPSSHARE_AUTHORITY_POW_DIFFICULTY", strconv.Itoa(cfg.Protocol.Difficulty)},
		{"DPSSHARE_AUTHORITY_HTTP_PORT", port},
	})

	port, err = urlPort(cfg.Global)
	if err != nil {
		return nil, err
	}
	facilityURLs := make([]string, len(cfg.Facilities))
	for i, f := range cfg.Facilities {
		facilityURLs[i] = f.ID + "=" + f.URL
	}
	files["global.env"] = renderEnv("global", [][2]string{
		{"DPSSHARE_GLOBAL_REGIONALS", strings.Join(cfg.RegionalIDs(), ",")},
		{"DPSSHARE_GLOBAL_FACILITY_URLS", strings.Join(facilityURLs, ",")},
		{"DPSSHARE_GLOBAL_SCHEME", cfg.Protocol.Scheme},
		{"DPSSHARE_GLOBAL_THRESHOLD", strconv.Itoa(cfg.Protocol.Threshold)},
		{"DPSSHARE_GLOBAL_KEY_SECRET", secret},
		{"DPSSHARE_GLOBAL_AUTHORITY_URL", cfg.Authority},
		{"DPSSHARE_GLOBAL_HTTP_PORT", port},
	})

	for i, r := range cfg.Regionals {
		port, err := urlPort(r.URL)
		if err != nil {
			return nil, err
		}
		files[r.ID+".env"] = renderEnv(r.ID, [][2]string{
			{"DPSSHARE_REGIONAL_ID", r.ID},
			{"DPSSHARE_REGIONAL_SHARE_INDEX", strconv.Itoa(i + 1)},
			{"DPSSHARE_REGIONAL_FACILITIES", strconv.Itoa(len(cfg.Facilities))},
			{"DPSSHARE_REGIONAL_SCHEME", cfg.Protocol.Scheme},
			{"DPSSHARE_REGIONAL_POW_DIFFICULTY", strconv.Itoa(cfg.Protocol.Difficulty)},
			{"DPSSHARE_REGIONAL_COMMITTEE_SIZE", strconv.Itoa(cfg.Protocol.CommitteeSize)},
			{"DPSSHARE_REGIONAL_KEY_SECRET", secret},
			{"DPSSHARE_REGIONAL_GLOBAL_URL", cfg.Global},
			{"DPSSHARE_REGIONAL_HTTP_PORT", port},
		})
	}

	for i, f := range cfg.Facilities {
		port, err := urlPort(f.URL)
		if err != nil {
			return nil, err
		}
		attrs := make([]string, 0, len(f.Attributes))
		for _, k := range slices.Sorted(maps.Keys(f.Attributes)) {
			attrs = append(attrs, k+":"+f.Attributes[k])
		}
		files[f.ID+".env"] = renderEnv(f.ID, [][2]string{
			{"DPSSHARE_FACILITY_ID", f.ID},
			{"DPSSHARE_FACILITY_ATTRIBUTES", strings.Join(attrs, ",")},
			{"DPSSHARE_FACILITY_ROUNDS", strconv.Itoa(cfg.Protocol.Rounds)},
			{"DPSSHARE_FACILITY_POW_DIFFICULTY", strconv.Itoa(cfg.Protocol.Difficulty)},
			{"DPSSHARE_FACILITY_EPSILON", strconv.FormatFloat(cfg.Protocol.Epsilon, 'g', -1, 64)},
			{"DPSSHARE_FACILITY_SENSITIVITY", strconv.FormatFloat(cfg.Protocol.Sensitivity, 'g', -1, 64)},
			{"DPSSHARE_FACILITY_SCHEME", cfg.Protocol.Scheme},
			{"DPSSHARE_FACILITY_THRESHOLD", strconv.Itoa(cfg.Protocol.Threshold)},
			{"DPSSHARE_FACILITY_KEY_SECRET", secret},
			{"DPSSHARE_FACILITY_AUTHORITY_URL", cfg.Authority},
			{"DPSSHARE_FACILITY_GLOBAL_URL", cfg.Global},
			{"DPSSHARE_FACILITY_REGIONAL_URLS", strings.Join(cfg.RegionalURLs(), ",")},
			{"DPSSHARE_FACILITY_FEATURES", strconv.Itoa(cfg.Model.Features)},
			{"DPSSHARE_FACILITY_DATA_SEED", strconv.Itoa(i + 1)},
			{"DPSSHARE_FACILITY_HTTP_PORT", port},
		})
	}

	return files, nil
}

func renderEnv(role string, vars [][2]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# DPSShare %s configuration\n\n", role)
	for _, kv := range vars {
		fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
	}

	return b.String()
}

func localURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

func urlPort(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Port() == "" {
		return "", fmt.Errorf("url %q has no port", raw)
	}

	return u.Port(), nil
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("%q is not a positive integer", s)
	}

	return nil
}

func shareCount(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < sharing.MinShares {
		return fmt.Errorf("%q is not an integer of at least %d", s, sharing.MinShares)
	}

	return nil
}

func nonNegativeInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("%q is not a non-negative integer", s)
	}

	return nil
}

func positiveFloat(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("%q is not a positive number", s)
	}

	return nil
}
