package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// git commit used for this build; supplied at compile time
var gitCommit string

type serviceVersion struct {
	BuildVersion string `json:"build,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	GitCommit    string `json:"git_commit,omitempty"`
}

type serviceTranslations struct {
	bundle *i18n.Bundle
}

// serviceContext is the shared long-lived state of the service: config,
// the outbound archive client, the redis response cache, translations,
// and build info.  per-request and per-session state live elsewhere.
type serviceContext struct {
	randomSource *rand.Rand
	config       *serviceConfig
	translations serviceTranslations
	version      serviceVersion
	archive      *archiveClient
	cache        *responseCache
}

func (s *serviceContext) initVersion() {
	buildVersion := "unknown"
	files, _ := filepath.Glob("buildtag.*")
	if len(files) == 1 {
		buildVersion = strings.Replace(files[0], "buildtag.", "", 1)
	}

	s.version = serviceVersion{
		BuildVersion: buildVersion,
		GoVersion:    fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
		GitCommit:    gitCommit,
	}

	log.Printf("[SERVICE] version.BuildVersion = [%s]", s.version.BuildVersion)
	log.Printf("[SERVICE] version.GoVersion    = [%s]", s.version.GoVersion)
	log.Printf("[SERVICE] version.GitCommit    = [%s]", s.version.GitCommit)
}

func (s *serviceContext) initArchive() {
	s.archive = newArchiveClient(s.config)

	log.Printf("[SERVICE] archive.searchURL    = [%s]", s.archive.searchURL)
	log.Printf("[SERVICE] archive.facetURL     = [%s]", s.archive.facetURL)
	log.Printf("[SERVICE] archive.metadataURL  = [%s]", s.archive.metadataURL)
}

func (s *serviceContext) initCache() {
	s.cache = newResponseCache(&s.config.Cache)
}

func (s *serviceContext) initTranslations() {
	defaultLang := language.English

	bundle := i18n.NewBundle(defaultLang)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	toml, _ := filepath.Glob("i18n/*.toml")
	for _, f := range toml {
		bundle.MustLoadMessageFile(f)
	}

	s.translations = serviceTranslations{
		bundle: bundle,
	}
}

func (s *serviceContext) validateConfig() {
	// ensure the existence and validity of required variables/translation ids

	invalid := false

	var messageIDs stringValidator
	var miscValues stringValidator

	miscValues.requireValue(s.config.Service.Port, "service port")
	miscValues.requireValue(s.config.Archive.Host, "archive host")

	if strings.HasPrefix(s.config.Archive.Host, "http") == false {
		log.Printf("[VALIDATE] archive host is not a url")
		invalid = true
	}

	messageIDs.addValue(msgIDServiceDescription)
	messageIDs.addValue(msgIDStatusStartTyping)
	messageIDs.addValue(msgIDStatusNoResults)
	messageIDs.addValue(msgIDStatusCannotShow)

	for i, group := range facetGroupRegistry {
		miscValues.requireValue(group.IDName, fmt.Sprintf("facet group %d id", i))
		miscValues.requireValue(group.Name, fmt.Sprintf("facet group %d name", i))
	}

	// validate message ids can actually be translated

	langs := []string{}
	tags := s.translations.bundle.LanguageTags()

	for _, tag := range tags {
		lang := tag.String()
		langs = append(langs, lang)
		localizer := i18n.NewLocalizer(s.translations.bundle, lang)
		for _, id := range messageIDs.Values() {
			if _, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id}); err != nil {
				log.Printf("[VALIDATE] [%s] missing translation for message ID: [%s] (%s)", lang, id, err.Error())
				invalid = true
			}
		}
	}

	// check if anything went wrong anywhere

	if invalid || messageIDs.Invalid() || miscValues.Invalid() {
		log.Printf("[VALIDATE] exiting due to missing/incorrect field value(s) above")
		os.Exit(1)
	}

	log.Printf("[SERVICE] supported languages  = [%s]", strings.Join(langs, ", "))
}

func initializeService(cfg *serviceConfig) *serviceContext {
	s := serviceContext{}

	s.config = cfg
	s.randomSource = rand.New(rand.NewSource(time.Now().UnixNano()))

	s.initTranslations()
	s.initVersion()
	s.initArchive()
	s.initCache()

	s.validateConfig()

	return &s
}
