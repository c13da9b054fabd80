package actions

import "github.com/crystal-mush/gomaze/pkg/room"

// Defaults are installed in every room, in dispatch order.
func Defaults() []room.ActionFactory {
	return []room.ActionFactory{
		func(r *room.Room) room.Action { return NewGo(r) },
		func(r *room.Room) room.Action { return NewSay(r) },
		func(r *room.Room) room.Action { return NewShout(r) },
		func(r *room.Room) room.Action { return NewTake(r) },
		func(r *room.Room) room.Action { return NewRelease(r) },
	}
}

// DungeonSet is added to dungeon rooms.
func DungeonSet() []room.ActionFactory {
	return []room.ActionFactory{
		func(r *room.Room) room.Action { return NewDragon(r) },
		func(r *room.Room) room.Action { return NewSciFi(r) },
	}
}

// MessageWallSet is added to message-wall rooms.
func MessageWallSet(wallDir string) []room.ActionFactory {
	return []room.ActionFactory{WallIn(wallDir)}
}

// MainHallSet is added to the main hall: the wall plus the guessing game.
func MainHallSet(wallDir string) []room.ActionFactory {
	return []room.ActionFactory{
		WallIn(wallDir),
		func(r *room.Room) room.Action { return NewGuessTheNumber(r) },
	}
}
