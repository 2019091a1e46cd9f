package item

// Идентификаторы встроенного каталога
const (
	Air             uint16 = 0
	Dirt            uint16 = 2
	DirtSeed        uint16 = 3
	Lava            uint16 = 4
	MainDoor        uint16 = 6
	Bedrock         uint16 = 8
	Rock            uint16 = 10
	Door            uint16 = 12
	CaveBackground  uint16 = 14
	Sign            uint16 = 20
	WoodenPlatform  uint16 = 102
	SmallLock       uint16 = 202
	BigLock         uint16 = 204
	HugeLock        uint16 = 206
	WorldLock       uint16 = 242
	Dice            uint16 = 456
	Chicken         uint16 = 872
	Mannequin       uint16 = 1420
	DisplayBlock    uint16 = 2946
	CountryFlag     uint16 = 3394
	Pipe            uint16 = 3400
	FunnelUp        uint16 = 3402
	FunnelDown      uint16 = 3404
	SideFunnel      uint16 = 3406
	Crossover       uint16 = 3408
	Scrambler       uint16 = 3410
	Vent            uint16 = 3412
	Launcher        uint16 = 3414
	Lamp            uint16 = 3416
	Spikes          uint16 = 3418
	CircuitDoor     uint16 = 3420
	Portal          uint16 = 3422
	Entrance        uint16 = 3426
	GameFlag        uint16 = 3428
	Spotlight       uint16 = 3430
	WeatherMachine  uint16 = 3694
	WeatherColor    uint16 = 3832
	Portrait        uint16 = 3836
	BuildersLock    uint16 = 4994
	WeatherBack     uint16 = 5000
	WeatherInfinity uint16 = 10058
)

// Уровни замков (совпадают с lock.Tier)
const (
	TierSmall  uint8 = 1
	TierMedium uint8 = 2
	TierLarge  uint8 = 3
)

// Default возвращает встроенный каталог, достаточный для генерации мира и тестов
func Default() *Registry {
	return NewRegistry(
		Metadata{ID: Dirt, Name: "Dirt", Kind: KindBlock, Collision: CollisionSolid, BreakHits: 3},
		Metadata{ID: DirtSeed, Name: "Dirt Seed", Kind: KindSeed, BreakHits: 1},
		Metadata{ID: Lava, Name: "Lava", Kind: KindBlock, Collision: CollisionSolid, BreakHits: 5},
		Metadata{ID: MainDoor, Name: "Main Door", Kind: KindMainDoor, Flags: FlagPermanent | FlagUntradeable},
		Metadata{ID: Bedrock, Name: "Bedrock", Kind: KindBedrock, Collision: CollisionSolid, Flags: FlagPermanent | FlagUntradeable},
		Metadata{ID: Rock, Name: "Rock", Kind: KindBlock, Collision: CollisionSolid, BreakHits: 6},
		Metadata{ID: Door, Name: "Door", Kind: KindDoor, BreakHits: 2},
		Metadata{ID: CaveBackground, Name: "Cave Background", Kind: KindBackground, BreakHits: 2},
		Metadata{ID: Sign, Name: "Sign", Kind: KindSign, BreakHits: 2},
		Metadata{ID: WoodenPlatform, Name: "Wooden Platform", Kind: KindBlock, Collision: CollisionPlatform, BreakHits: 2},
		Metadata{ID: SmallLock, Name: "Small Lock", Kind: KindLock, Collision: CollisionSolid, BreakHits: 4, LockTier: TierSmall},
		Metadata{ID: BigLock, Name: "Big Lock", Kind: KindLock, Collision: CollisionSolid, BreakHits: 4, LockTier: TierMedium},
		Metadata{ID: HugeLock, Name: "Huge Lock", Kind: KindLock, Collision: CollisionSolid, BreakHits: 4, LockTier: TierLarge},
		Metadata{ID: BuildersLock, Name: "Builder's Lock", Kind: KindLock, Collision: CollisionSolid, BreakHits: 4, LockTier: TierLarge, Flags: FlagMirrorOwner},
		Metadata{ID: WorldLock, Name: "World Lock", Kind: KindWorldLock, Collision: CollisionSolid, BreakHits: 4},
		Metadata{ID: Dice, Name: "Dice Block", Kind: KindDice, Collision: CollisionSolid, BreakHits: 3},
		Metadata{ID: Chicken, Name: "Chicken", Kind: KindProvider, BreakHits: 3},
		Metadata{ID: Mannequin, Name: "Mannequin", Kind: KindMannequin, BreakHits: 3},
		Metadata{ID: DisplayBlock, Name: "Display Block", Kind: KindDisplayBlock, Collision: CollisionSolid, BreakHits: 3},
		Metadata{ID: CountryFlag, Name: "Country Flag", Kind: KindFlag, BreakHits: 2},
		Metadata{ID: Pipe, Name: "Steam Tube", Kind: KindPipe, BreakHits: 2},
		Metadata{ID: FunnelUp, Name: "Steam Funnel Up", Kind: KindFunnel, BreakHits: 2, Facing: FacingUp},
		Metadata{ID: FunnelDown, Name: "Steam Funnel Down", Kind: KindFunnel, BreakHits: 2, Facing: FacingDown},
		Metadata{ID: SideFunnel, Name: "Steam Funnel", Kind: KindSideFunnel, BreakHits: 2},
		Metadata{ID: Crossover, Name: "Steam Crossover", Kind: KindCrossover, BreakHits: 2},
		Metadata{ID: Scrambler, Name: "Steam Scrambler", Kind: KindScrambler, BreakHits: 2},
		Metadata{ID: Vent, Name: "Steam Vent", Kind: KindVent, BreakHits: 2},
		Metadata{ID: Launcher, Name: "Steam Launcher", Kind: KindLauncher, Collision: CollisionSolid, BreakHits: 3},
		Metadata{ID: Lamp, Name: "Steam Lamp", Kind: KindLamp, BreakHits: 2},
		Metadata{ID: Spikes, Name: "Steam Spikes", Kind: KindSpikes, BreakHits: 2},
		Metadata{ID: CircuitDoor, Name: "Steam Door", Kind: KindCircuitDoor, Collision: CollisionToggle, BreakHits: 3},
		Metadata{ID: Portal, Name: "Portal", Kind: KindPortal, BreakHits: 3},
		Metadata{ID: Entrance, Name: "Entrance", Kind: KindBlock, Collision: CollisionGateway, BreakHits: 3},
		Metadata{ID: GameFlag, Name: "Game Flag", Kind: KindGameResource, BreakHits: 2},
		Metadata{ID: Spotlight, Name: "Spotlight", Kind: KindSpotlight, BreakHits: 2},
		Metadata{ID: WeatherMachine, Name: "Weather Machine - Stuff", Kind: KindWeatherMachine, BreakHits: 3, Weather: 29},
		Metadata{ID: WeatherColor, Name: "Weather Machine - Colorful", Kind: KindWeatherColor, BreakHits: 3, Weather: 32},
		Metadata{ID: Portrait, Name: "Portrait", Kind: KindPortrait, BreakHits: 2},
		Metadata{ID: WeatherBack, Name: "Weather Machine - Background", Kind: KindWeatherBackground, BreakHits: 3, Weather: 34},
		Metadata{ID: WeatherInfinity, Name: "Infinity Weather Machine", Kind: KindWeatherInfinity, BreakHits: 3},
	)
}
