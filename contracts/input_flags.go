package contracts

type InputFlags struct {
	InputPath  string
	OutputPath string
	Backend    string
	Depth      string
	TileSize   int
	Overlap    int
	Quality    int
	Workers    int
}
