// Package settings holds the training-run settings record for the codon
// transformer and its YAML form.
//
// A ModelSettings value is built either from Default or by loading a YAML
// file. Loading is strict: keys that are not declared fields, values of the
// wrong type and explicit nulls are rejected. Keys absent from the file keep
// their defaults.
package settings

// ModelSettings is the flat set of settings consumed by the training
// pipeline. Field order is the order used when the record is dumped.
type ModelSettings struct {
	// logging settings
	WandbActive      bool   `yaml:"wandb_active"`
	WandbProjectName string `yaml:"wandb_project_name"`
	CheckpointDir    string `yaml:"checkpoint_dir"`

	// data settings
	TokenizerFile string `yaml:"tokenizer_file"`
	TrainFile     string `yaml:"train_file"`
	ValFile       string `yaml:"val_file"`
	TestFile      string `yaml:"test_file"`
	SmallSubset   bool   `yaml:"small_subset"`

	// blast settings
	EnableBlast         bool   `yaml:"enable_blast"`
	BlastValidationFile string `yaml:"blast_validation_file"`
	NumBlastSeqsPerGPU  int    `yaml:"num_blast_seqs_per_gpu"`

	// model settings
	UsePretrained         bool `yaml:"use_pretrained"`
	BatchSize             int  `yaml:"batch_size"`
	TrainingSteps         int  `yaml:"training_steps"`
	BlockSize             int  `yaml:"block_size"`
	ValCheckInterval      int  `yaml:"val_check_interval"`
	AccumulateGradBatches int  `yaml:"accumulate_grad_batches"`

	// generation settings
	GenerateUponCompletion bool `yaml:"generate_upon_completion"`
	NumGeneratedSeqsPerGPU int  `yaml:"num_generated_seqs_per_gpu"`
}

// Default returns the settings with every field at its documented default.
func Default() ModelSettings {
	return ModelSettings{
		WandbActive:      true,
		WandbProjectName: "codon_transformer",
		CheckpointDir:    "codon_transformer",

		TokenizerFile: "tokenizer_files/codon_wordlevel_100vocab.json",
		TrainFile:     "mdh_codon_spaces_full_train.txt",
		ValFile:       "mdh_codon_spaces_full_val.txt",
		TestFile:      "mdh_codon_spaces_full_test.txt",
		SmallSubset:   false,

		EnableBlast:         true,
		BlastValidationFile: "blast_file.fasta",
		NumBlastSeqsPerGPU:  5,

		UsePretrained:         true,
		BatchSize:             4,
		TrainingSteps:         500,
		BlockSize:             512,
		ValCheckInterval:      100,
		AccumulateGradBatches: 4,

		GenerateUponCompletion: true,
		NumGeneratedSeqsPerGPU: 15,
	}
}

// field binds a YAML key to the struct field it fills. The table must list
// keys in the same order as the struct declares them.
type field struct {
	key string
	ref func(s *ModelSettings) any
}

var fields = []field{
	{"wandb_active", func(s *ModelSettings) any { return &s.WandbActive }},
	{"wandb_project_name", func(s *ModelSettings) any { return &s.WandbProjectName }},
	{"checkpoint_dir", func(s *ModelSettings) any { return &s.CheckpointDir }},
	{"tokenizer_file", func(s *ModelSettings) any { return &s.TokenizerFile }},
	{"train_file", func(s *ModelSettings) any { return &s.TrainFile }},
	{"val_file", func(s *ModelSettings) any { return &s.ValFile }},
	{"test_file", func(s *ModelSettings) any { return &s.TestFile }},
	{"small_subset", func(s *ModelSettings) any { return &s.SmallSubset }},
	{"enable_blast", func(s *ModelSettings) any { return &s.EnableBlast }},
	{"blast_validation_file", func(s *ModelSettings) any { return &s.BlastValidationFile }},
	{"num_blast_seqs_per_gpu", func(s *ModelSettings) any { return &s.NumBlastSeqsPerGPU }},
	{"use_pretrained", func(s *ModelSettings) any { return &s.UsePretrained }},
	{"batch_size", func(s *ModelSettings) any { return &s.BatchSize }},
	{"training_steps", func(s *ModelSettings) any { return &s.TrainingSteps }},
	{"block_size", func(s *ModelSettings) any { return &s.BlockSize }},
	{"val_check_interval", func(s *ModelSettings) any { return &s.ValCheckInterval }},
	{"accumulate_grad_batches", func(s *ModelSettings) any { return &s.AccumulateGradBatches }},
	{"generate_upon_completion", func(s *ModelSettings) any { return &s.GenerateUponCompletion }},
	{"num_generated_seqs_per_gpu", func(s *ModelSettings) any { return &s.NumGeneratedSeqsPerGPU }},
}

func lookupField(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Fields returns the declared keys in declaration order.
func Fields() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}
