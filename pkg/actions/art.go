package actions

import "strings"

var dragonArt = strings.Split(strings.TrimPrefix(`
    ^                       ^
    |\   \        /        /|
   /  \  |\__  __/|       /  \
  / /\ \ \ _ \/ _ /      /    \
 / / /\ \ {*}\/{*}      /  / \ \
 | | | \ \( (00) )     /  // |\ \
 | | | |\ \(V""V)\    /  / | || \| 
 | | | | \ |^--^| \  /  / || || || 
/ / /  | |( WWWW__ \/  /| || || ||
| | | | | |  \______\  / / || || || 
| | | / | | )|______\ ) | / | || ||
/ / /  / /  /______/   /| \ \ || ||
/ / /  / /  /\_____/  |/ /__\ \ \ \ \
| | | / /  /\______/    \   \__| \ \ \
| | | | | |\______ __    \_    \__|_| \
| | ,___ /\______ _  _     \_       \  |
| |/    /\_____  /    \      \__     \ |    /\
|/ |   |\______ |      |        \___  \ |__/  \
v  |   |\______ |      |            \___/     |
 |   |\______ |      |                    __/
  \   \________\_    _\               ____/
__/   /\_____ __/   /   )\_,      _____/
/  ___/  \uuuu/  ___/___)    \______/
VVV  V        VVV  V 

 RRRRRRAAAAAWWWR, A DRAGON!`, "\n"), "\n")

var starWarsCrawl = strings.Split(strings.TrimPrefix(`
A long time ago, in a galaxy far, far away....

It is a period of civil war. Rebel
spaceships, striking from a hidden
base, have won their first victory
against the evil Galactic Empire.

During the battle, Rebel spies managed
to steal secret plans to the Empire's
ultimate weapon, the Death Star, an
armored space station with enough
power to destroy an entire planet.

Pursued by the Empire's sinister agents,
Princess Leia races home aboard her
starship, custodian of the stolen plans
that can save her people and restore
freedom to the galaxy...`, "\n"), "\n")
